package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/navbytes/requestkit/pkg/functions"
)

// NewFunctionsCommand creates the functions listing command
func NewFunctionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List built-in template functions",
		Long: `List every function available inside ${...} expressions, with its
parameters. Optional parameters are shown in brackets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := functions.NewRegistry()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FUNCTION\tDESCRIPTION")
			for _, spec := range registry.ListFunctions() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", signature(spec), spec.Description)
			}
			return w.Flush()
		},
	}

	return cmd
}

// signature renders "name(param, [optional])" for display.
func signature(spec functions.FunctionSpec) string {
	s := spec.Name + "("
	for i, p := range spec.Parameters {
		if i > 0 {
			s += ", "
		}
		if p.Required {
			s += p.Name
		} else {
			s += "[" + p.Name + "]"
		}
	}
	return s + ")"
}
