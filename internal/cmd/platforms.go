package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gsokit/gsoscope/internal/ailink"
	"github.com/gsokit/gsoscope/internal/core/engine"
	"github.com/gsokit/gsoscope/internal/output"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List platforms with their configuration and credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatValue, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		format, err := output.ParseFormat(formatValue)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatPlatforms(engine.DescribePlatforms(cfg, nil))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		if format == output.FormatTable || format == output.FormatMarkdown {
			fmt.Fprintf(cmd.OutOrStdout(), "\nMode: %s\n", ailink.SelectMode(cfg))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
	platformsCmd.Flags().StringP("output", "o", "table", "Output format: table, json, markdown, yaml")
}
