// File: cmd/compile.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/internal/observability"
	"github.com/xkilldash9x/pagewright/pkg/compiler"
	"github.com/xkilldash9x/pagewright/pkg/descriptor"
)

// newCompileCmd creates the `compile` command: it parses descriptor
// documents, resolves their accessor graphs, and prints what each page
// exposes. Cyclic references and malformed documents fail here, before any
// browser is involved.
func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [descriptors...]",
		Short: "Compiles page descriptor files into their accessor graphs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			comp := compiler.New(compiler.NewMemoryTypeCache(), logger)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			for _, path := range args {
				graph, err := compileFile(comp, path)
				if err != nil {
					return err
				}
				logger.Info("compiled page descriptor",
					zap.String("file", path),
					zap.String("page", graph.Page),
					zap.Int("accessors", len(graph.Accessors)))

				fmt.Fprintf(w, "page %s\t\t\t\n", graph.Page)
				printAccessors(w, graph.Accessors, "  ")
			}
			return w.Flush()
		},
	}
}

func compileFile(comp *compiler.Compiler, path string) (*compiler.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening descriptor %s: %w", path, err)
	}
	defer f.Close()

	page, err := descriptor.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	graph, err := comp.Compile(page)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}
	return graph, nil
}

func printAccessors(w *tabwriter.Writer, accessors []*compiler.Accessor, indent string) {
	for _, a := range accessors {
		kind := "one"
		if a.Plural {
			kind = "many"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", indent, a.Name, kind, a.Type, a.Locator)
		printAccessors(w, a.Children, indent+"  ")
	}
}
