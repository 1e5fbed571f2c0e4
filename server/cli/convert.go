package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regdata/cfr-engine/server/config"
	"github.com/regdata/cfr-engine/server/ingest"
	"github.com/regdata/cfr-engine/server/store"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert bulk CFR markup into the indexed JSON store",
	Long: `Convert discovers CFR-*.xml files under the input directory, parses
each one, and writes per-(year, title) JSON containers plus a single
lookup index. Files are processed in parallel; a failure on one file
never aborts the rest of the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		files, err := ingest.DiscoverFiles(cfg.InputDir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no CFR markup files found under %s", cfg.InputDir)
		}

		coordinator := &ingest.Coordinator{
			Writer:       store.NewWriter(cfg.StoreDir),
			Workers:      cfg.Workers,
			WriteRetries: cfg.WriteRetries,
		}

		summary, err := coordinator.Run(cmd.Context(), files)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}

		fmt.Printf("Converted %d files: %d units succeeded, %d failed\n",
			summary.TotalFiles, len(summary.Succeeded), len(summary.Failed))
		for _, failed := range summary.Failed {
			fmt.Printf("  failed: %s: %v\n", failed.Unit, failed.Err)
		}

		return nil
	},
}

func init() {
	convertCmd.Flags().String("input-dir", "bulk", "directory containing CFR markup files")
	convertCmd.Flags().String("store-dir", "json_cfr", "directory for the JSON store")

	_ = viper.BindPFlag("input_dir", convertCmd.Flags().Lookup("input-dir"))
	_ = viper.BindPFlag("store_dir", convertCmd.Flags().Lookup("store-dir"))

	rootCmd.AddCommand(convertCmd)
}
