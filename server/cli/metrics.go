package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regdata/cfr-engine/server/config"
	"github.com/regdata/cfr-engine/server/dao"
	"github.com/regdata/cfr-engine/server/history"
)

var versionsFile string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute historical metrics across document revision chains",
	Long: `Metrics reads a JSON file of per-document version lists (newest
first), walks each document's history, and stores one metrics record per
version in the metrics database. Documents are processed in parallel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		payload, err := os.ReadFile(versionsFile)
		if err != nil {
			return fmt.Errorf("failed to read versions file: %w", err)
		}

		var documents []history.DocumentVersions
		if err := json.Unmarshal(payload, &documents); err != nil {
			return fmt.Errorf("failed to parse versions file: %w", err)
		}

		ctx := cmd.Context()
		db, err := dao.OpenMetricsDB(ctx, cfg.MetricsDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		service := &history.Service{
			Sink:    &dao.MetricsDAO{Db: db},
			Workers: cfg.Workers,
		}

		summary, err := service.ProcessDocuments(ctx, documents)
		if err != nil {
			return fmt.Errorf("metrics run failed: %w", err)
		}

		fmt.Printf("Processed %d documents: %d succeeded, %d records written, %d errors\n",
			summary.TotalDocuments, summary.Succeeded, summary.RecordCount, len(summary.Errors))
		for _, err := range summary.Errors {
			fmt.Printf("  error: %v\n", err)
		}

		return nil
	},
}

func init() {
	metricsCmd.Flags().StringVar(&versionsFile, "versions-file", "", "JSON file of per-document version lists")
	metricsCmd.Flags().String("metrics-db", "metrics.db", "path to the metrics database")

	_ = metricsCmd.MarkFlagRequired("versions-file")

	_ = viper.BindPFlag("metrics_db_path", metricsCmd.Flags().Lookup("metrics-db"))

	rootCmd.AddCommand(metricsCmd)
}
