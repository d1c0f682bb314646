package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mhan0505/student-management-system/internal/analysis"
	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/export"
	"github.com/mhan0505/student-management-system/internal/student"
	"github.com/mhan0505/student-management-system/internal/utils"
)

var (
	anaOutputPath string
	anaExportPath string
	anaFormat     string
	anaInput      inputFlags
	anaRun        runFlags
)

// runFlags are the pipeline overrides shared by analyze and outliers.
type runFlags struct {
	multiplier    float64
	topK          int
	referenceDate string
	treatment     string
	groupBy       string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.multiplier, "multiplier", analysis.DefaultMultiplier, "IQR fence multiplier k for [Q1-k*IQR, Q3+k*IQR]")
	cmd.Flags().IntVar(&f.topK, "top-k", 3, "students ranked per group")
	cmd.Flags().StringVar(&f.referenceDate, "reference-date", "", "date ages are computed at (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.treatment, "treatment", "", "outlier treatment: none | cap | remove")
	cmd.Flags().StringVar(&f.groupBy, "group-by", "", "column for the group summary and top-k")
}

// options starts from the configured pipeline options and applies the flags
// the user actually set.
func (f *runFlags) options(cmd *cobra.Command) (analysis.Options, error) {
	c, err := requireConfig()
	if err != nil {
		return analysis.Options{}, err
	}
	opts, err := c.PipelineOptions()
	if err != nil {
		return opts, err
	}
	fl := cmd.Flags()
	if fl.Changed("multiplier") {
		opts.Multiplier = f.multiplier
	}
	if fl.Changed("top-k") {
		opts.TopK = f.topK
	}
	if fl.Changed("reference-date") {
		t, err := time.Parse(dataset.DateLayout, f.referenceDate)
		if err != nil {
			return opts, fmt.Errorf("invalid --reference-date %q (use YYYY-MM-DD)", f.referenceDate)
		}
		opts.ReferenceDate = t
	}
	if fl.Changed("treatment") {
		t, err := analysis.ParseTreatment(f.treatment)
		if err != nil {
			return opts, err
		}
		opts.Treatment = t
	}
	if fl.Changed("group-by") {
		opts.GroupColumn = f.groupBy
	}
	return opts, opts.Validate()
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Run the full analytics pipeline on a file or the database",
	Long: `Run imputation, BMI/age derivation, z-scores, IQR outlier detection and the
group summary with top-k rankings. Without a file the students table of the
configured database is analyzed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := anaRun.options(cmd)
		if err != nil {
			return err
		}
		p, err := analysis.NewPipeline(opts, appLog())
		if err != nil {
			return err
		}
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		d, source, err := loadDataset(cmd.Context(), path, &anaInput)
		if err != nil {
			return err
		}
		res, err := p.Run(d)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch anaFormat {
		case "markdown", "":
			md := res.Markdown()
			if anaOutputPath != "" {
				if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				color.Green("✓ Wrote analysis to %s", anaOutputPath)
			} else {
				fmt.Fprintln(out, md)
			}
		case "table":
			printResult(out, res, source)
		case "json":
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown, table or json)", anaFormat)
		}

		if anaExportPath != "" {
			dest := exportPath(anaExportPath)
			if err := export.WriteResult(dest, res); err != nil {
				return err
			}
			color.Green("✓ Exported results to %s", dest)
		}
		return nil
	},
}

// exportPath places bare file names under the configured export directory.
func exportPath(p string) string {
	if filepath.Dir(p) != "." || cfg == nil || cfg.ExportDir == "" {
		return p
	}
	return filepath.Join(cfg.ExportDir, p)
}

// printResult renders the run as colored status lines and tables.
func printResult(w io.Writer, res *analysis.Result, source string) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "Analyzed %d students from %s\n", res.InputRows, source)
	if n := res.Imputation.TotalMissing(); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "⚠ %d missing values were imputed\n", n)
	}
	for _, s := range res.Outliers {
		c := color.New(color.FgGreen)
		if s.Count() > 0 {
			c = color.New(color.FgRed)
		}
		c.Fprintf(w, "%s: %d outliers outside [%.2f, %.2f]\n", s.Bounds.Column, s.Count(), s.Bounds.Lower, s.Bounds.Upper)
	}
	if res.Enriched.HasColumn(student.ColBMI) {
		counts := map[string]int{}
		for _, f := range res.Enriched.Floats(student.ColBMI) {
			counts[student.BMICategory(f)]++
		}
		fmt.Fprintf(w, "BMI: %d underweight, %d normal, %d overweight, %d obese\n",
			counts["Underweight"], counts["Normal"], counts["Overweight"], counts["Obese"])
	}

	color.New(color.FgYellow).Fprintf(w, "\nSummary by %s\n", res.Summary.GroupColumn)
	renderTable(w, res.Summary.Dataset())
	color.New(color.FgYellow).Fprintf(w, "\nTop %d per %s\n", res.Options.TopK, res.Summary.GroupColumn)
	renderTable(w, res.TopK)
}

func renderTable(w io.Writer, d *dataset.Dataset) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(d.Columns())
	for i := 0; i < d.Len(); i++ {
		row := make([]string, 0, len(d.Columns()))
		for _, c := range d.Columns() {
			row = append(row, cellText(d.Get(i, c)))
		}
		table.Append(row)
	}
	table.Render()
}

func cellText(v dataset.Value) string {
	if f, ok := v.Float(); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return v.String()
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the Markdown report")
	analyzeCmd.Flags().StringVar(&anaExportPath, "export", "", "export results: .csv/.tsv (enriched rows), .xlsx (workbook) or .json")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "stdout format: markdown | table | json")
	anaRun.register(analyzeCmd)
	anaInput.register(analyzeCmd)
}
