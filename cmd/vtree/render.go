package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/treedoc"
	"github.com/vango-dev/vtree/pkg/component"
	"github.com/vango-dev/vtree/pkg/host/memhost"
	"github.com/vango-dev/vtree/pkg/sched"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func renderCmd(configDir *string) *cobra.Command {
	var (
		query string
		stats bool
	)

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Render a tree document to HTML",
		Long: `Load a YAML or JSON tree document, render it into an in-memory host
tree and print the resulting HTML.

With --query the keys of the elements matching the selector are printed
instead, one per line.

Examples:
  vtree render tree.yaml
  vtree render tree.yaml --query 'li.done'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*configDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			doc, err := treedoc.Load(args[0])
			if err != nil {
				return err
			}

			manual := sched.NewManual()
			rt := vdom.NewRuntime(e.runtimeOptions(manual)...)
			defer rt.Free()
			reg := component.NewRegistry(rt, component.WithLogger(e.logger))
			defer reg.Close()

			tree, err := doc.Build(reg)
			if err != nil {
				return err
			}
			host := memhost.New(
				memhost.WithLogger(e.logger),
				memhost.WithSelectorCache(rt.Selectors()),
				memhost.WithOpObserver(e.metrics.HostOp),
			)
			root := rt.Bind(host, host.NewContainer(doc.Root))
			tree.Mount(root)
			manual.Settle()

			out := cmd.OutOrStdout()
			if query != "" {
				for _, h := range host.Query(root.Element(), query) {
					fmt.Fprintln(out, host.Key(h))
				}
			} else {
				fmt.Fprintln(out, host.InnerHTML(root.Element()))
			}
			if stats {
				s := host.Stats()
				info(cmd, "elements: %d", host.Len()-2)
				info(cmd, "components: %d", len(tree.Components))
				info(cmd, "host ops: %s", strings.TrimPrefix(fmt.Sprintf("%+v", s), "&"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Print keys of elements matching this selector")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print host operation counts to stderr")
	return cmd
}
