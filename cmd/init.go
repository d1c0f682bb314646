package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgpkg "github.com/mhan0505/student-management-system/internal/config"
)

var (
	initForce  bool
	initDriver string
	initDSN    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file and create the students table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			dir, err := cfgpkg.Dir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "config.yaml")
		}
		// Refuse to overwrite an existing config.
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat config: %w", err)
		}

		c, err := requireConfig()
		if err != nil {
			return err
		}
		if initDriver != "" {
			if err := c.Set("db_driver", initDriver); err != nil {
				return err
			}
		}
		if initDSN != "" {
			c.DBDSN = initDSN
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		color.Green("✓ Config written: %s", path)

		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()
		color.Green("✓ Database ready: %s", maskDSN(c.DBDSN))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().StringVar(&initDriver, "db-driver", "", "database driver: sqlite | postgres")
	initCmd.Flags().StringVar(&initDSN, "db-dsn", "", "database connection string (default ~/.sms/students.db for sqlite)")
}
