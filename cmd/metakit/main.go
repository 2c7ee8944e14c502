package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kampute/metakit"
	"github.com/kampute/metakit/internal/crefindex"
	"github.com/kampute/metakit/internal/snapshot"
)

var (
	flagSnapshot string
	flagDB       string
	flagFormat   string
	flagConfig   string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "metakit",
	Short:         "Resolve and query managed metadata snapshots",
	Long:          "Metakit loads assembly descriptor snapshots, resolves types, members, generics and virtual slots, and maintains a SQLite cref index for fast lookup.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyConfig(); err != nil {
			return err
		}
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSnapshot, "snapshot", "", "snapshot path (default from metakit.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "cref index path (default: .metakit/crefs.db next to the snapshot)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: metakit.toml found upward from cwd)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(overridesCmd)
	rootCmd.AddCommand(extensionsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(scriptCmd)
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [snapshot]",
	Short: "Build the cref index from a snapshot",
	Long:  "Loads a descriptor snapshot, resolves every assembly and writes one index entry per type and member to the SQLite cref index.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the index database and rebuild from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	snapPath := flagSnapshot
	if len(args) > 0 {
		snapPath = args[0]
	}
	repo, err := loadRepository(snapPath)
	if err != nil {
		return err
	}

	dbPath := resolveDBPath(snapPath)
	indexDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", indexDir, err)
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing index for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared index: %s\n", dbPath)
	}

	x, err := crefindex.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer x.Close()
	if err := x.Migrate(); err != nil {
		return fmt.Errorf("migrating index: %w", err)
	}

	n, err := crefindex.Populate(x, repo)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %d entries in %s\n", n, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Index: %s\n", dbPath)

	return nil
}

// loadRepository decodes the snapshot at path and resolves it into a
// repository. An empty path falls back to the configured default.
func loadRepository(path string) (*metakit.Repository, error) {
	if path == "" {
		path = flagSnapshot
	}
	if path == "" {
		return nil, fmt.Errorf("no snapshot: pass --snapshot or set it in metakit.toml")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	assemblies, err := snapshot.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	repo, err := metakit.NewRepository(assemblies...)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot %s: %w", path, err)
	}
	return repo, nil
}

// resolveDBPath returns the index path from the --db flag or the default
// .metakit/crefs.db next to the snapshot.
func resolveDBPath(snapPath string) string {
	if flagDB != "" {
		return flagDB
	}
	base := "."
	if snapPath == "" {
		snapPath = flagSnapshot
	}
	if snapPath != "" {
		base = filepath.Dir(snapPath)
	}
	return filepath.Join(base, ".metakit", "crefs.db")
}

// openIndex opens the cref index for read commands.
func openIndex() (*crefindex.Index, error) {
	dbPath := resolveDBPath("")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("index not found: %s (run 'metakit index' first)", dbPath)
	}
	return crefindex.Open(dbPath)
}
