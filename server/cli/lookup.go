package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regdata/cfr-engine/server/config"
	"github.com/regdata/cfr-engine/server/store"
)

var (
	lookupYear    string
	lookupTitle   string
	lookupPart    string
	lookupSection string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up one CFR section from the converted store",
	Long: `Lookup consults the index, loads exactly one title file, and prints
the section, so the cost is independent of corpus size.

Example:
  cfr-engine lookup --year 1996 --title 21 --part 1 --section 1.1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		reader := store.NewReader(cfg.StoreDir)
		record, err := reader.Lookup(lookupYear, lookupTitle, lookupPart, lookupSection)
		if err != nil {
			return fmt.Errorf("lookup failed: %w", err)
		}

		if record == nil {
			available := reader.AvailableKeys(lookupYear, lookupTitle, lookupPart)
			if len(available) > 0 {
				return fmt.Errorf("no data for year %s, title %s, part %s, section %s (nearby keys: %s)",
					lookupYear, lookupTitle, lookupPart, lookupSection, strings.Join(available, ", "))
			}
			return fmt.Errorf("no data for year %s, title %s, part %s, section %s",
				lookupYear, lookupTitle, lookupPart, lookupSection)
		}

		fmt.Printf("Section: %s\n", record.SectionNumber)
		fmt.Printf("Title: %s\n", record.SectionTitle)
		if record.Empty {
			fmt.Println("\n(no body text)")
		} else {
			fmt.Printf("\nContent:\n%s\n", record.Content)
		}

		return nil
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupYear, "year", "", "year of the CFR edition (e.g. 1996)")
	lookupCmd.Flags().StringVar(&lookupTitle, "title", "", "CFR title number (e.g. 21)")
	lookupCmd.Flags().StringVar(&lookupPart, "part", "", "CFR part number (e.g. 1)")
	lookupCmd.Flags().StringVar(&lookupSection, "section", "", "CFR section number (e.g. 1.1)")
	lookupCmd.Flags().String("store-dir", "json_cfr", "directory containing the JSON store")

	_ = lookupCmd.MarkFlagRequired("year")
	_ = lookupCmd.MarkFlagRequired("title")
	_ = lookupCmd.MarkFlagRequired("part")
	_ = lookupCmd.MarkFlagRequired("section")

	_ = viper.BindPFlag("store_dir", lookupCmd.Flags().Lookup("store-dir"))

	rootCmd.AddCommand(lookupCmd)
}
