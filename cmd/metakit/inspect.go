package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kampute/metakit"
	"github.com/kampute/metakit/internal/crefindex"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <cref>",
	Short: "Resolve a cref to its type or member",
	Long:  "Resolves a doc-comment cref (T:, M:, P:, E:, F:) against the snapshot and prints the resolved type or member.",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	repo, err := loadRepository("")
	if err != nil {
		return outputError("resolve", err)
	}
	cref := args[0]

	if strings.HasPrefix(cref, "T:") {
		t, err := repo.TypeByCref(cref)
		if err != nil {
			return outputError("resolve", err)
		}
		if t == nil {
			return outputError("resolve", fmt.Errorf("unresolved cref: %s", cref))
		}
		return outputResult(CLIResult{Command: "resolve", Results: typeToCLI(t)})
	}

	m, err := repo.MemberByCref(cref)
	if err != nil {
		return outputError("resolve", err)
	}
	if m == nil {
		return outputError("resolve", fmt.Errorf("unresolved cref: %s", cref))
	}
	return outputResult(CLIResult{Command: "resolve", Results: memberToCLI(m)})
}

var describeCmd = &cobra.Command{
	Use:   "describe <full-name>",
	Short: "Describe a type by its full name",
	Long:  "Looks up a type by namespace-qualified name (arity suffix optional for generics) and prints its shape: base, interfaces, generic arity and member count.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	repo, err := loadRepository("")
	if err != nil {
		return outputError("describe", err)
	}
	t, ok := repo.TypeByName(args[0])
	if !ok {
		return outputError("describe", fmt.Errorf("unknown type: %s", args[0]))
	}
	return outputResult(CLIResult{Command: "describe", Results: typeToCLI(t)})
}

var membersCmd = &cobra.Command{
	Use:   "members <full-name>",
	Short: "List the members of a type",
	Args:  cobra.ExactArgs(1),
	RunE:  runMembers,
}

func runMembers(cmd *cobra.Command, args []string) error {
	repo, err := loadRepository("")
	if err != nil {
		return outputError("members", err)
	}
	t, ok := repo.TypeByName(args[0])
	if !ok {
		return outputError("members", fmt.Errorf("unknown type: %s", args[0]))
	}
	results := []CLIMember{}
	if mp, ok := t.(metakit.MemberProvider); ok {
		for _, m := range mp.Members() {
			results = append(results, memberToCLI(m))
		}
	}
	return outputResult(CLIResult{Command: "members", Results: results})
}

var overridesCmd = &cobra.Command{
	Use:   "overrides <cref>",
	Short: "Show a member's virtual and generic slots",
	Long:  "Resolves a member cref and prints the slot it overrides, the interface slot it implements and the open generic definition it instantiates, when any exist.",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverrides,
}

func runOverrides(cmd *cobra.Command, args []string) error {
	repo, err := loadRepository("")
	if err != nil {
		return outputError("overrides", err)
	}
	m, err := repo.MemberByCref(args[0])
	if err != nil {
		return outputError("overrides", err)
	}
	if m == nil {
		return outputError("overrides", fmt.Errorf("unresolved cref: %s", args[0]))
	}

	slots := CLISlots{Member: memberToCLI(m)}
	if over := repo.FindOverriddenMember(m); over != nil {
		cli := memberToCLI(over)
		slots.Overridden = &cli
	}
	if impl := repo.FindImplementedMember(m); impl != nil {
		cli := memberToCLI(impl)
		slots.Implemented = &cli
	}
	if def := repo.FindGenericDefinition(m); def != nil {
		cli := memberToCLI(def)
		slots.Definition = &cli
	}
	return outputResult(CLIResult{Command: "overrides", Results: slots})
}

var extensionsCmd = &cobra.Command{
	Use:   "extensions <full-name>",
	Short: "List extension groups applicable to a receiver type",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtensions,
}

func runExtensions(cmd *cobra.Command, args []string) error {
	repo, err := loadRepository("")
	if err != nil {
		return outputError("extensions", err)
	}
	t, ok := repo.TypeByName(args[0])
	if !ok {
		return outputError("extensions", fmt.Errorf("unknown type: %s", args[0]))
	}
	groups, err := repo.ExtensionsFor(t)
	if err != nil {
		return outputError("extensions", err)
	}
	results := []CLIExtensionGroup{}
	for _, g := range groups {
		cli := CLIExtensionGroup{
			Receiver: g.Receiver().Type().FullName(),
			Members:  []CLIMember{},
		}
		for _, em := range g.Members() {
			cli.Members = append(cli.Members, memberToCLI(em))
		}
		results = append(results, cli)
	}
	return outputResult(CLIResult{Command: "extensions", Results: results})
}

var flagLimit int

var searchCmd = &cobra.Command{
	Use:   "search <prefix>",
	Short: "Search the cref index by prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&flagLimit, "limit", 50, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	x, err := openIndex()
	if err != nil {
		return outputError("search", err)
	}
	defer x.Close()

	entries, err := x.ByPrefix(args[0], flagLimit)
	if err != nil {
		return outputError("search", err)
	}
	results := make([]CLIEntry, 0, len(entries))
	for _, e := range entries {
		results = append(results, entryToCLI(e))
	}
	return outputResult(CLIResult{Command: "search", Results: results})
}

// --- Conversion helpers ---

func typeToCLI(t metakit.Type) CLIType {
	cli := CLIType{
		FullName:   t.FullName(),
		Name:       t.Name(),
		Namespace:  t.Namespace(),
		Kind:       t.Kind().String(),
		Signature:  t.Signature(),
		Visibility: t.Visibility().String(),
	}
	if asm := t.Assembly(); asm != nil {
		cli.Assembly = asm.Name
	}
	if b, ok := t.(interface{ Base() metakit.Type }); ok && b.Base() != nil {
		cli.Base = b.Base().FullName()
	}
	if ip, ok := t.(metakit.InterfaceProvider); ok {
		for _, i := range ip.Interfaces() {
			cli.Interfaces = append(cli.Interfaces, i.Signature())
		}
	}
	if gt, ok := t.(metakit.GenericType); ok {
		if gt.IsConstructed() {
			cli.Definition = gt.Definition().FullName()
			for _, a := range gt.TypeArguments() {
				cli.TypeArguments = append(cli.TypeArguments, a.Signature())
			}
		}
		cli.Arity = len(gt.TypeParameters()) + len(gt.TypeArguments())
	}
	if mp, ok := t.(metakit.MemberProvider); ok {
		cli.MemberCount = len(mp.Members())
	}
	return cli
}

func memberToCLI(m metakit.Member) CLIMember {
	cli := CLIMember{
		Cref:       m.Cref(),
		Name:       m.Name(),
		Kind:       m.Kind().String(),
		Visibility: m.Visibility().String(),
		Static:     m.IsStatic(),
	}
	if d := m.Declaring(); d != nil {
		cli.Declaring = d.FullName()
	}
	if r := m.Result(); r != nil {
		cli.Result = r.Signature()
	}
	if vm, ok := m.(metakit.VirtualMember); ok {
		cli.Virtuality = vm.Virtuality().String()
	}
	for _, p := range m.Parameters() {
		cli.Parameters = append(cli.Parameters, CLIParameter{
			Name:     p.Name(),
			Position: p.Position(),
			Type:     p.Type().Signature(),
		})
	}
	return cli
}

func entryToCLI(e *crefindex.Entry) CLIEntry {
	return CLIEntry{
		Cref:      e.Cref,
		Kind:      e.Kind,
		Name:      e.Name,
		Declaring: e.Declaring,
		Assembly:  e.Assembly,
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}
