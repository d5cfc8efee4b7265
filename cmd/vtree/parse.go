package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/pkg/selector"
)

func parseCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "parse <selector>",
		Short: "Print the compound selectors a selector parses to",
		Long: `Parse a selector the way the engine does and print its compound
selectors as JSON, one array element per comma-separated part.

Parsing is best-effort: unreadable fragments are dropped. With --strict
the command fails instead.

Examples:
  vtree parse 'li.done[data-key^="a"]'
  vtree parse --strict 'div >'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strict {
				if err := selector.Check(args[0]); err != nil {
					return err
				}
			}
			compounds := selector.Parse(args[0])
			if compounds == nil {
				compounds = []selector.Compound{}
			}
			data, err := json.MarshalIndent(compounds, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			info(cmd, "canonical: %s", selector.Join(compounds))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on malformed input")
	return cmd
}
