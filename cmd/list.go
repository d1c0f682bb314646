package cmd

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mhan0505/student-management-system/internal/student"
)

var (
	listMajors bool
	listMajor  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List students or majors stored in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()
		out := cmd.OutOrStdout()

		if listMajors {
			majors, err := repo.Majors(ctx)
			if err != nil {
				return err
			}
			if len(majors) == 0 {
				fmt.Fprintln(out, "(no majors)")
			}
			for _, m := range majors {
				fmt.Fprintf(out, "- %s\n", m)
			}
			return nil
		}

		d, err := repo.FetchAll(ctx)
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"ID", "Name", "Gender", "Major", "GPA", "Credits", "Phone"})
		shown := 0
		for i := 0; i < d.Len(); i++ {
			s, err := student.FromRow(d, i)
			if err != nil {
				return err
			}
			if listMajor != "" && !strings.EqualFold(s.Major, listMajor) {
				continue
			}
			gpa, credits := "", ""
			if s.GPA != nil {
				gpa = student.FormatGPA(*s.GPA, 2)
			}
			if s.Credits != nil {
				credits = fmt.Sprintf("%.0f", *s.Credits)
			}
			table.Append([]string{s.ID, student.FormatName(s.FullName), s.Gender, s.Major, gpa, credits, student.FormatPhone(s.Phone)})
			shown++
		}
		if shown == 0 {
			fmt.Fprintln(out, "(no students)")
			return nil
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listMajors, "majors", false, "list distinct majors instead of students")
	listCmd.Flags().StringVar(&listMajor, "major", "", "only list students of this major")
}
