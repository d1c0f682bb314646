package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mhan0505/student-management-system/internal/analysis"
	"github.com/mhan0505/student-management-system/internal/export"
)

var (
	outMode   string
	outExport string
	outInput  inputFlags
	outRun    runFlags
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <column> [file]",
	Short: "Detect, cap or remove IQR outliers in one column",
	Long: `Impute and derive the usual columns (so bmi and age are available), then
apply one outlier operation to <column>:

  detect  list rows strictly outside [Q1 - k*IQR, Q3 + k*IQR]
  cap     clamp values to the fences
  remove  drop rows outside the fences (rows with a missing value are kept)`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		col := args[0]
		var path string
		if len(args) == 2 {
			path = args[1]
		}
		opts, err := outRun.options(cmd)
		if err != nil {
			return err
		}
		opts.OutlierColumns = []string{col}
		switch outMode {
		case "detect":
			opts.Treatment = analysis.TreatNone
		case "cap":
			opts.Treatment = analysis.TreatCap
		case "remove":
			opts.Treatment = analysis.TreatRemove
		default:
			return fmt.Errorf("unsupported --mode: %s (use detect, cap or remove)", outMode)
		}
		p, err := analysis.NewPipeline(opts, appLog())
		if err != nil {
			return err
		}
		d, _, err := loadDataset(cmd.Context(), path, &outInput)
		if err != nil {
			return err
		}
		res, err := p.Run(d)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		set, _ := res.OutliersFor(col)
		b := set.Bounds
		if !b.Defined() {
			color.New(color.FgYellow).Fprintf(out, "⚠ %s has no observations; nothing to flag\n", col)
			return nil
		}
		fmt.Fprintf(out, "%s: Q1 %.2f, Q3 %.2f, IQR %.2f, fences [%.2f, %.2f] (k=%g, n=%d)\n",
			col, b.Q1, b.Q3, b.IQR, b.Lower, b.Upper, b.Multiplier, b.N)

		switch outMode {
		case "detect":
			if set.Count() == 0 {
				color.New(color.FgGreen).Fprintln(out, "✓ No outliers")
				break
			}
			color.New(color.FgRed).Fprintf(out, "%d outliers\n", set.Count())
			renderTable(out, set.Rows)
		case "cap":
			t := res.Treatments[0]
			color.New(color.FgGreen).Fprintf(out, "✓ Capped %d values\n", t.Capped)
		case "remove":
			t := res.Treatments[0]
			color.New(color.FgGreen).Fprintf(out, "✓ Removed %d rows, %d remain\n", t.Removed, res.Enriched.Len())
		}

		if outExport != "" {
			dest := exportPath(outExport)
			if err := export.WriteResult(dest, res); err != nil {
				return err
			}
			color.Green("✓ Exported results to %s", dest)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	outliersCmd.Flags().StringVar(&outMode, "mode", "detect", "detect | cap | remove")
	outliersCmd.Flags().StringVar(&outExport, "export", "", "export the treated dataset (.csv/.tsv/.xlsx/.json)")
	outRun.register(outliersCmd)
	outInput.register(outliersCmd)
	_ = outliersCmd.Flags().MarkHidden("treatment")
}
