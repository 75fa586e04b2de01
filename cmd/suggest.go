package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ocrstudio/internal/suggest"
)

var suggestJSON bool

var suggestCmd = &cobra.Command{
	Use:   "suggest <ocr-output.json|->",
	Short: "Suggest field mappings for an OCR JSON document",
	Long: `Reads OCR output (a JSON object, "-" for stdin) and proposes a one-to-one
assignment of catalog fields to its leaf paths, best matches first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		raw, err := readInput(args[0], cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}

		ranked, err := suggest.Rank(catalog, raw)
		if err != nil {
			return fmt.Errorf("suggesting mappings: %w", err)
		}

		out := cmd.OutOrStdout()
		if suggestJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(ranked)
		}

		if len(ranked) == 0 {
			fmt.Fprintln(out, "No mapping suggestions.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tPATH\tSCORE")
		for _, s := range ranked {
			fmt.Fprintf(tw, "%s\t%s\t%.0f%%\n", s.FieldID, s.Path, s.Score*100)
		}
		return tw.Flush()
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "print suggestions as JSON")
	rootCmd.AddCommand(suggestCmd)
}
