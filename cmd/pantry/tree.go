package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nakedpantry/backend/internal/domain"
	"github.com/nakedpantry/backend/internal/usecase"
	"github.com/spf13/cobra"
)

func newTreeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tree [aisles.json]",
		Short: "Build and print the aisle hierarchy from flat aisle rows",
		Long: `Read a JSON array of aisle rows ({id, name, slug, parent_id}) from a file,
or from stdin when no file is given, and print the sorted hierarchy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open aisle file: %w", err)
				}
				defer f.Close()
				in = f
			}

			var rows []domain.Aisle
			if err := json.NewDecoder(in).Decode(&rows); err != nil {
				return fmt.Errorf("failed to decode aisle rows: %w", err)
			}

			tree := usecase.BuildAisleTree(rows)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tree)
			}
			printTree(out, tree, 0)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")
	return cmd
}

func printTree(w io.Writer, nodes []*domain.AisleNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s%s (%s)\n", strings.Repeat("  ", depth), n.Name, n.ID)
		printTree(w, n.Children, depth+1)
	}
}
