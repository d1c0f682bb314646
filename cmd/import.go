package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/parser"
	"github.com/mhan0505/student-management-system/internal/student"
)

var (
	impInput       inputFlags
	impSkipInvalid bool
	impQuiet       bool
)

var importCmd = &cobra.Command{
	Use:   "import <files...>",
	Short: "Load CSV/TSV/XLSX student files into the database",
	Long: `Insert the rows of one or more files (globs allowed) into the students table.
Each file is inserted in one transaction; a duplicate id aborts that file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandFiles(args)
		if err != nil {
			return err
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opt, err := impInput.options()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer repo.Close()
		val := student.NewValidator(c.Limits)

		// parse concurrently, insert in file order
		tables := make([]*dataset.Dataset, len(files))
		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				d, err := parser.ReadFile(path, opt)
				if err != nil {
					return err
				}
				tables[i] = d
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		total, inserted := len(files), 0
		for i, path := range files {
			if !impQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			d := tables[i]
			var batch []*student.Student
			skipped := 0
			for row := 0; row < d.Len(); row++ {
				s, err := student.FromRow(d, row)
				if err != nil {
					return err
				}
				if err := val.Validate(s); err != nil {
					if !impSkipInvalid {
						return fmt.Errorf("%s row %d: %w", filepath.Base(path), row+2, err)
					}
					skipped++
					appLog().Debugw("skipping invalid row", "file", path, "row", row+2, "problems", student.Problems(err))
					continue
				}
				batch = append(batch, s)
			}
			n, err := repo.InsertMany(ctx, batch)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			inserted += n
			if !impQuiet {
				color.Green("✓ Inserted %d rows from %s", n, filepath.Base(path))
				if skipped > 0 {
					color.Yellow("⚠ Skipped %d invalid rows (run `sms validate %s` for details)", skipped, path)
				}
			}
		}
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		color.Green("✓ Imported %d students; database now holds %d", inserted, count)
		return nil
	},
}

// expandFiles resolves globs and literal paths, dropping duplicates and
// unsupported formats.
func expandFiles(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok || !parser.Supported(m) {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&impSkipInvalid, "skip-invalid", true, "skip rows failing validation instead of aborting")
	importCmd.Flags().BoolVar(&impQuiet, "quiet", false, "suppress progress and non-essential output")
	impInput.register(importCmd)
}
