package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatTypeText formats a CLIType as readable text.
func formatTypeText(w io.Writer, t CLIType) {
	fmt.Fprintf(w, "Type: %s\n", t.FullName)
	fmt.Fprintf(w, "Kind: %s\n", t.Kind)
	fmt.Fprintf(w, "Visibility: %s\n", t.Visibility)
	if t.Assembly != "" {
		fmt.Fprintf(w, "Assembly: %s\n", t.Assembly)
	}
	if t.Base != "" {
		fmt.Fprintf(w, "Base: %s\n", t.Base)
	}
	if len(t.Interfaces) > 0 {
		fmt.Fprintln(w, "Interfaces:")
		for _, i := range t.Interfaces {
			fmt.Fprintf(w, "  %s\n", i)
		}
	}
	if t.Definition != "" {
		fmt.Fprintf(w, "Definition: %s\n", t.Definition)
		fmt.Fprintf(w, "Arguments: %s\n", strings.Join(t.TypeArguments, ", "))
	} else if t.Arity > 0 {
		fmt.Fprintf(w, "Arity: %d\n", t.Arity)
	}
	fmt.Fprintf(w, "Members: %d\n", t.MemberCount)
}

// formatMembersText formats CLIMember results as aligned columns.
func formatMembersText(w io.Writer, members []CLIMember) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVISIBILITY\tVIRTUALITY\tCREF")
	for _, m := range members {
		virt := m.Virtuality
		if virt == "" {
			virt = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.Name, m.Kind, m.Visibility, virt, m.Cref)
	}
	tw.Flush()
}

// formatSlotsText formats a CLISlots as readable text.
func formatSlotsText(w io.Writer, slots CLISlots) {
	fmt.Fprintf(w, "Member: %s\n", slots.Member.Cref)
	if slots.Member.Virtuality != "" {
		fmt.Fprintf(w, "Virtuality: %s\n", slots.Member.Virtuality)
	}
	if slots.Overridden != nil {
		fmt.Fprintf(w, "Overrides: %s\n", slots.Overridden.Cref)
	}
	if slots.Implemented != nil {
		fmt.Fprintf(w, "Implements: %s\n", slots.Implemented.Cref)
	}
	if slots.Definition != nil {
		fmt.Fprintf(w, "Definition: %s\n", slots.Definition.Cref)
	}
}

// formatExtensionsText formats CLIExtensionGroup results as readable text.
func formatExtensionsText(w io.Writer, groups []CLIExtensionGroup) {
	for _, g := range groups {
		fmt.Fprintf(w, "Receiver: %s\n", g.Receiver)
		formatMembersText(w, g.Members)
		fmt.Fprintln(w)
	}
}

// formatEntriesText formats CLIEntry results as aligned columns.
func formatEntriesText(w io.Writer, entries []CLIEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREF\tKIND\tDECLARING\tASSEMBLY")
	for _, e := range entries {
		declaring := e.Declaring
		if declaring == "" {
			declaring = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Cref, e.Kind, declaring, e.Assembly)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case CLIType:
		formatTypeText(w, v)
	case CLIMember:
		formatMembersText(w, []CLIMember{v})
	case []CLIMember:
		formatMembersText(w, v)
	case CLISlots:
		formatSlotsText(w, v)
	case []CLIExtensionGroup:
		formatExtensionsText(w, v)
	case []CLIEntry:
		formatEntriesText(w, v)
	case nil:
		// No output for nil results.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
