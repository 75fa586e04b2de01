package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ocrstudio/internal/ocrconfig"
)

var resolveModule, resolveConsignor, resolveTransporter string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the configuration a document would use",
	Long: `Resolves the most specific active configuration for a module, consignor
and transporter: transporter level first, then consignor level, then the
module default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		key := ocrconfig.NewKey(resolveModule, resolveConsignor, resolveTransporter)
		out := cmd.OutOrStdout()

		resolved, err := ocrconfig.Resolve(cmd.Context(), openConfigStore(database), key)
		if errors.Is(err, ocrconfig.ErrNotFound) {
			fmt.Fprintf(out, "No configuration found for %s.\n", key)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Resolved %s at %s level\n", key, resolved.Level)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resolved)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveModule, "module", "", "module code (required)")
	resolveCmd.Flags().StringVar(&resolveConsignor, "consignor", "", "consignor code")
	resolveCmd.Flags().StringVar(&resolveTransporter, "transporter", "", "transporter code")
	_ = resolveCmd.MarkFlagRequired("module")
	rootCmd.AddCommand(resolveCmd)
}
