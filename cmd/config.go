package cmd

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgpkg "github.com/mhan0505/student-management-system/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set sms configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "db_driver: %s\n", c.DBDriver)
		fmt.Fprintf(out, "db_dsn: %s\n", maskDSN(c.DBDSN))
		fmt.Fprintf(out, "reference_date: %s\n", c.ReferenceDate)
		fmt.Fprintf(out, "iqr_multiplier: %.3f\n", c.IQRMultiplier)
		fmt.Fprintf(out, "zscore_columns: %s\n", strings.Join(c.ZScoreColumns, ","))
		fmt.Fprintf(out, "outlier_columns: %s\n", strings.Join(c.OutlierColumns, ","))
		fmt.Fprintf(out, "summary_columns: %s\n", strings.Join(c.SummaryColumns, ","))
		fmt.Fprintf(out, "group_column: %s\n", c.GroupColumn)
		fmt.Fprintf(out, "top_k: %d\n", c.TopK)
		fmt.Fprintf(out, "treatment: %s\n", c.Treatment)
		fmt.Fprintf(out, "undo_capacity: %d\n", c.UndoCapacity)
		fmt.Fprintf(out, "export_dir: %s\n", c.ExportDir)
		fmt.Fprintf(out, "server_addr: %s\n", c.ServerAddr)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		l := c.Limits
		fmt.Fprintf(out, "limits: gpa [%g, %g], height_cm [%g, %g], weight_kg [%g, %g]\n",
			l.MinGPA, l.MaxGPA, l.MinHeightCM, l.MaxHeightCM, l.MinWeightKG, l.MaxWeightKG)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		color.Green("✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var dsnPassword = regexp.MustCompile(`(password=)\S+`)

// maskDSN hides passwords in URL and key=value connection strings.
func maskDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(dsn, "${1}****")
}
