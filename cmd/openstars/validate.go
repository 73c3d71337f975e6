package main

import (
	"fmt"

	"github.com/aretw0/openstars/internal/runtime"
	"github.com/aretw0/openstars/internal/validator"
	"github.com/aretw0/openstars/pkg/catalog"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration, the dialogue graph and the catalog",
	Long: `Loads the configuration, checks that every dialogue step is reachable and
leads to the confirmation step, and parses the candidate catalog the server
would use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if err := validator.ValidateGraph(runtime.NewEngine().Graph(), domain.StepWelcome, domain.StepConfirmation); err != nil {
			return fmt.Errorf("dialogue graph: %w", err)
		}

		path, _ := cmd.Flags().GetString("catalog")
		if path == "" {
			path = cfg.Dialogue.CatalogPath
		}
		if path != "" {
			if _, err := catalog.Load(path); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration, graph and catalog are valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("catalog", "", "Catalog file to check (defaults to dialogue.catalog_path)")
}
