// Package scripthost embeds a Risor VM over a metadata repository. Scripts
// get host functions for lookup, virtual-slot and assignability queries, and
// optionally for the persistent cref index, so ad-hoc inspection and report
// generation do not require recompiling the host.
package scripthost

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/kampute/metakit"
	"github.com/kampute/metakit/internal/crefindex"
)

// Host embeds a Risor VM and exposes repository query host functions to
// inspection scripts.
type Host struct {
	repo       *metakit.Repository
	index      *crefindex.Index
	scriptsDir string
	fsys       fs.FS
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithScriptFS configures the Host to load scripts from an fs.FS instead of
// from disk. Also configures the Risor importer to use FSImporter for import
// statement resolution.
func WithScriptFS(fsys fs.FS) HostOption {
	return func(h *Host) {
		h.fsys = fsys
	}
}

// WithIndex exposes a cref index to scripts via the cref_* host functions.
func WithIndex(x *crefindex.Index) HostOption {
	return func(h *Host) {
		h.index = x
	}
}

// NewHost creates a Host wired to the given repository and scripts directory.
func NewHost(repo *metakit.Repository, scriptsDir string, opts ...HostOption) *Host {
	h := &Host{
		repo:       repo,
		scriptsDir: scriptsDir,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RunScript loads and executes a Risor script with all standard globals plus
// any extra globals provided by the caller.
func (h *Host) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := h.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return h.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (h *Host) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return h.eval(ctx, source, "<inline>", extraGlobals)
}

func (h *Host) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := h.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := h.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("scripthost: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Host's script
// source. Returns nil if neither fs.FS nor scriptsDir is configured.
func (h *Host) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if h.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    h.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if h.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   h.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. When an fs.FS
// is configured, uses fs.ReadFile on that filesystem; otherwise os.ReadFile
// with scriptsDir as the base directory.
func (h *Host) LoadScript(path string) (string, error) {
	if h.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(h.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("scripthost: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(h.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("scripthost: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
// Risor cannot construct or unwrap Go interface values, so the repository is
// exposed through thin host functions that accept and return maps.
func (h *Host) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{prefix: "metakit"}),

		"assemblies":     makeAssembliesFn(h.repo),
		"type_by_name":   makeTypeByNameFn(h.repo),
		"type_by_cref":   makeTypeByCrefFn(h.repo),
		"member_by_cref": makeMemberByCrefFn(h.repo),
		"members_of":     makeMembersOfFn(h.repo),

		"assignable":         makeAssignableFn(h.repo),
		"valid_substitution": makeValidSubstitutionFn(h.repo),
		"overridden":         makeOverriddenFn(h.repo),
		"implemented":        makeImplementedFn(h.repo),
		"generic_definition": makeGenericDefinitionFn(h.repo),
		"extensions_for":     makeExtensionsForFn(h.repo),
	}

	if h.index != nil {
		globals["cref_lookup"] = makeCrefLookupFn(h.index)
		globals["cref_search"] = makeCrefSearchFn(h.index)
		globals["cref_count"] = makeCrefCountFn(h.index)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("scripthost: proxy error: %v", err))
	}
	return p
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	prefix string
}

func (l *logObject) Info(msg string) {
	fmt.Printf("[%s] INFO: %s\n", l.prefix, msg)
}

func (l *logObject) Warn(msg string) {
	fmt.Printf("[%s] WARN: %s\n", l.prefix, msg)
}

func (l *logObject) Error(msg string) {
	fmt.Printf("[%s] ERROR: %s\n", l.prefix, msg)
}
