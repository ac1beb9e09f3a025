package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	appFrag "github.com/turtacn/molfrag/internal/application/fragmentation"
	"github.com/turtacn/molfrag/internal/config"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
)

type fragmentOptions struct {
	rules       []string
	ph          float64
	errorPolicy string
	unique      bool
	parallel    bool
}

// NewFragmentCmd creates the fragment subcommand.
func NewFragmentCmd() *cobra.Command {
	opts := &fragmentOptions{}

	cmd := &cobra.Command{
		Use:   "fragment SMILES [SMILES...]",
		Short: "Fragment one or more molecules",
		Example: `  molfrag fragment 'CCC(=O)OCCC' 'CCC(=O)OCCC(=O)O'
  molfrag fragment --rules cod,oxh --unique 'NCC(O)CC'
  molfrag fragment -o json --ph 2.5 'CC(=O)O'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFragment(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.rules, "rules", "r", nil, "rules to apply (default: configured rules)")
	f.Float64Var(&opts.ph, "ph", config.DefaultPH, "protonation pH (experimental)")
	f.StringVar(&opts.errorPolicy, "error-policy", "", "handling of invalid fragments: remove, fix or ignore")
	f.BoolVarP(&opts.unique, "unique", "u", false, "drop repeated fragment sets")
	f.BoolVar(&opts.parallel, "parallel", false, "evaluate rules concurrently")
	return cmd
}

func runFragment(cmd *cobra.Command, args []string, opts *fragmentOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	var ph *float64
	if cmd.Flags().Changed("ph") {
		v := opts.ph
		ph = &v
	}

	responses := make([]*appFrag.FragmentResponse, 0, len(args))
	for _, smiles := range args {
		ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
		resp, err := cliCtx.Service.Fragment(ctx, &appFrag.FragmentRequest{
			SMILES:      smiles,
			Rules:       opts.rules,
			ErrorPolicy: opts.errorPolicy,
			UniqueOnly:  opts.unique,
			PH:          ph,
			Parallel:    opts.parallel,
			Source:      "cli",
		})
		cancel()
		if err != nil {
			return fmt.Errorf("fragment %q: %w", smiles, err)
		}
		cliCtx.Logger.Debug("fragmented molecule",
			logging.String("smiles", resp.Input.SMILES),
			logging.Int("sets", len(resp.Sets)),
			logging.Int("rejected", resp.Rejected),
			logging.Float64("elapsed_ms", resp.ElapsedMS))
		responses = append(responses, resp)
	}

	out := cmd.OutOrStdout()
	switch cliCtx.OutputFormat {
	case "json":
		if len(responses) == 1 {
			return printJSON(cmd, responses[0])
		}
		return printJSON(cmd, responses)
	case "table":
		_, err := io.WriteString(out, FormatTable(
			[]string{"MOLECULE", "SET", "RULE", "MASS", "FORMULA", "FRAGMENT"},
			fragmentRows(responses)))
		return err
	default:
		for _, resp := range responses {
			writeFragmentText(out, resp)
		}
		return nil
	}
}

// writeFragmentText prints the molecule line followed by one blank-line
// separated block of "mass smiles" lines per fragment set.
func writeFragmentText(w io.Writer, resp *appFrag.FragmentResponse) {
	fmt.Fprintf(w, "\nmolecule: %s\n", resp.Input.SMILES)
	for _, set := range resp.Sets {
		fmt.Fprintln(w)
		for _, frag := range set.Fragments {
			fmt.Fprintf(w, "%s %s\n", formatMass(frag.ExactMass), frag.SMILES)
		}
	}
}

// formatMass rounds to five decimals and drops trailing zeros, keeping one
// digit after the point.
func formatMass(m float64) string {
	return trimMass(strconv.FormatFloat(m, 'f', 5, 64))
}

func trimMass(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == '0' {
		end--
	}
	if end > 0 && s[end-1] == '.' {
		end++
	}
	return s[:end]
}

func fragmentRows(responses []*appFrag.FragmentResponse) [][]string {
	var rows [][]string
	for _, resp := range responses {
		for i, set := range resp.Sets {
			for _, frag := range set.Fragments {
				rows = append(rows, []string{
					resp.Input.SMILES,
					strconv.Itoa(i + 1),
					set.Rule,
					formatMass(frag.ExactMass),
					frag.Formula,
					frag.SMILES,
				})
			}
		}
	}
	return rows
}
