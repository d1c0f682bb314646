package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/mhan0505/student-management-system/internal/config"
	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/logging"
	"github.com/mhan0505/student-management-system/internal/parser"
	"github.com/mhan0505/student-management-system/internal/repository"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration and the logger built from it
	cfg    *cfgpkg.Global
	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "sms",
	Short: "Student records analytics: imputation, outliers, group summaries",
	Long: `sms loads student records from CSV/XLSX files or a SQL database, fills missing
measurements with grouped medians, derives BMI, age and z-scores, flags IQR
outliers and reports per-major summaries and top-k rankings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.sms/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	logger = logging.Nop()
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands that need config load it again and report the error
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		return
	}
	logger = l
}

// requireConfig returns the loaded configuration, loading it if the
// initializer could not.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func appLog() *zap.SugaredLogger {
	if logger == nil {
		return logging.Nop()
	}
	return logger
}

// openRepository connects to the configured database and ensures the
// students table exists.
func openRepository(ctx context.Context) (*repository.SQLRepository, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	repo, err := repository.Open(ctx, c.DBDriver, c.DBDSN, appLog())
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

// inputFlags are the reader options shared by commands that accept a file.
type inputFlags struct {
	sheetName  string
	sheetIndex int
	delimiter  string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default by extension)")
}

func (f *inputFlags) options() (parser.Options, error) {
	opt := parser.Options{SheetName: f.sheetName, SheetIndex: f.sheetIndex}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	return opt, nil
}

// loadDataset reads path, or the whole repository when path is empty.
func loadDataset(ctx context.Context, path string, in *inputFlags) (*dataset.Dataset, string, error) {
	if path != "" {
		opt, err := in.options()
		if err != nil {
			return nil, "", err
		}
		d, err := parser.ReadFile(path, opt)
		if err != nil {
			return nil, "", err
		}
		return d, path, nil
	}
	repo, err := openRepository(ctx)
	if err != nil {
		return nil, "", err
	}
	defer repo.Close()
	d, err := repo.FetchAll(ctx)
	if err != nil {
		return nil, "", err
	}
	return d, cfg.DBDriver + " database", nil
}
