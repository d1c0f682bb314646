package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mhan0505/student-management-system/internal/student"
)

var (
	valInput     inputFlags
	valMaxIssues int
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check records against the configured limits and report duplicate ids",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		d, source, err := loadDataset(cmd.Context(), path, &valInput)
		if err != nil {
			return err
		}
		rep := student.NewValidator(c.Limits).ValidateDataset(d)
		dups := student.Duplicates(d, student.ColID)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Checked %d rows from %s\n", rep.TotalRows, source)
		if len(rep.MissingRequired) > 0 {
			color.New(color.FgRed).Fprintf(out, "✗ Missing required columns: %s\n", strings.Join(rep.MissingRequired, ", "))
		}
		fmt.Fprintf(out, "Invalid gpa: %d, height: %d, weight: %d, gender: %d\n",
			rep.InvalidGPA, rep.InvalidHeight, rep.InvalidWeight, rep.InvalidGender)
		if len(dups) > 0 {
			ids := make([]string, 0, len(dups))
			for _, i := range dups {
				ids = append(ids, d.Get(i, student.ColID).String())
			}
			color.New(color.FgYellow).Fprintf(out, "⚠ Duplicate student ids on %d rows: %s\n", len(dups), strings.Join(ids, ", "))
		}

		if len(rep.Issues) > 0 {
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Row", "Student ID", "Problems"})
			for i, is := range rep.Issues {
				if valMaxIssues > 0 && i == valMaxIssues {
					table.Append([]string{"...", "", fmt.Sprintf("%d more", len(rep.Issues)-i)})
					break
				}
				// header is line 1
				table.Append([]string{strconv.Itoa(is.Row + 2), is.StudentID, strings.Join(is.Problems, "; ")})
			}
			table.Render()
		}

		if !rep.OK() || len(dups) > 0 {
			return fmt.Errorf("validation failed: %d invalid rows, %d duplicate ids", len(rep.Issues), len(dups))
		}
		color.Green("✓ All %d rows valid", rep.TotalRows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().IntVar(&valMaxIssues, "max-issues", 50, "maximum invalid rows to list (0 = all)")
	valInput.register(validateCmd)
}
