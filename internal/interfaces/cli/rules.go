package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewRulesCmd creates the rules subcommand.
func NewRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the fragmentation rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			rules := cliCtx.Service.Rules()
			switch cliCtx.OutputFormat {
			case "json":
				return printJSON(cmd, rules)
			case "table":
				rows := make([][]string, 0, len(rules))
				for _, r := range rules {
					rows = append(rows, []string{r.Name, r.Description})
				}
				_, err := io.WriteString(cmd.OutOrStdout(), FormatTable([]string{"RULE", "DESCRIPTION"}, rows))
				return err
			default:
				for _, r := range rules {
					fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", r.Name, r.Description)
				}
				return nil
			}
		},
	}
}
