package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nn1ks/lsfbot/pkg/config"
	"github.com/nn1ks/lsfbot/pkg/exporter"
	"github.com/nn1ks/lsfbot/pkg/scraper"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the timetable to an ICS file",
	Long:  `Scrape the configured timetable pages and export all sessions to an ICS file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		client := scraper.NewClient()
		schedule, err := scraper.Extract(client, cfg.Sources(), zap.NewNop())
		if err != nil {
			return fmt.Errorf("failed to fetch schedule: %w", err)
		}

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()

		if err := exporter.GenerateICS(schedule, file); err != nil {
			return fmt.Errorf("failed to generate ICS: %w", err)
		}

		fmt.Printf("Successfully exported %d courses to %s\n", len(schedule.Courses), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "schedule.ics", "Output file path")
}
