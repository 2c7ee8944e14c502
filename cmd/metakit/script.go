package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kampute/metakit/internal/crefindex"
	"github.com/kampute/metakit/internal/scripthost"
)

var scriptCmd = &cobra.Command{
	Use:   "script <path>",
	Short: "Run a Risor script against the snapshot",
	Long:  "Executes a Risor script with repository host functions (type_by_name, member_by_cref, assignable, overridden, ...) and, when the cref index exists, the cref_* lookup functions.",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	repo, err := loadRepository("")
	if err != nil {
		return err
	}

	var opts []scripthost.HostOption
	if dbPath := resolveDBPath(""); dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			x, err := crefindex.Open(dbPath)
			if err != nil {
				return err
			}
			defer x.Close()
			opts = append(opts, scripthost.WithIndex(x))
		}
	}

	scriptPath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	host := scripthost.NewHost(repo, filepath.Dir(scriptPath), opts...)
	return host.RunScript(context.Background(), scriptPath, nil)
}
