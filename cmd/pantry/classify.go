package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nakedpantry/backend/internal/usecase"
	"github.com/spf13/cobra"
)

func newClassifyCommand() *cobra.Command {
	var indicatorsFile string

	cmd := &cobra.Command{
		Use:   "classify [ingredients...]",
		Short: "Assign a NOVA group to an ingredient listing",
		Long: `Classify an ingredient listing given as arguments, or read from stdin
when no arguments are given. Each argument is one ingredient, so multi-word
ingredients must be quoted. The result is printed as JSON.`,
		Example: `  pantry classify "sugar, palm oil, soy lecithin"
  pantry classify water salt "olive oil"
  cat label.txt | pantry classify --indicators extra.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, ", ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}

			var extra []string
			if indicatorsFile != "" {
				phrases, err := usecase.LoadIndicatorFile(indicatorsFile)
				if err != nil {
					return err
				}
				extra = phrases
			}

			classifier := usecase.NewNovaClassifier(usecase.ClassifierConfig{ExtraIndicators: extra})
			result := classifier.Classify(text)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&indicatorsFile, "indicators", "", "YAML file with extra ultra-processed markers")
	return cmd
}
