package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mhan0505/student-management-system/internal/analysis"
	"github.com/mhan0505/student-management-system/internal/dataset"
	"github.com/mhan0505/student-management-system/internal/student"
)

// EnvPrefix prefixes every environment override, e.g. SMS_DB_DSN.
const EnvPrefix = "SMS"

// Global configuration structure.
type Global struct {
	DBDriver string `mapstructure:"db_driver" yaml:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn" yaml:"db_dsn"`

	// Analytics
	ReferenceDate  string   `mapstructure:"reference_date" yaml:"reference_date"`
	IQRMultiplier  float64  `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier"`
	ZScoreColumns  []string `mapstructure:"zscore_columns" yaml:"zscore_columns"`
	OutlierColumns []string `mapstructure:"outlier_columns" yaml:"outlier_columns"`
	SummaryColumns []string `mapstructure:"summary_columns" yaml:"summary_columns"`
	GroupColumn    string   `mapstructure:"group_column" yaml:"group_column"`
	TopK           int      `mapstructure:"top_k" yaml:"top_k"`
	Treatment      string   `mapstructure:"treatment" yaml:"treatment"`

	UndoCapacity int    `mapstructure:"undo_capacity" yaml:"undo_capacity"`
	ExportDir    string `mapstructure:"export_dir" yaml:"export_dir"`
	ServerAddr   string `mapstructure:"server_addr" yaml:"server_addr"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Limits student.Limits `mapstructure:"limits" yaml:"limits"`
}

// Dir is the per-user directory holding config.yaml and the default database.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".sms"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.sms/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including .env) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env only fills variables the process does not already have
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve db_dsn default: ~/.sms/students.db
	if c.DBDSN == "" && c.DBDriver == "sqlite" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		c.DBDSN = filepath.Join(dir, "students.db")
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	def := analysis.DefaultOptions()
	lim := student.DefaultLimits()

	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("reference_date", def.ReferenceDate.Format(dataset.DateLayout))
	v.SetDefault("iqr_multiplier", def.Multiplier)
	v.SetDefault("zscore_columns", def.ZScoreColumns)
	v.SetDefault("outlier_columns", def.OutlierColumns)
	v.SetDefault("summary_columns", def.SummaryColumns)
	v.SetDefault("group_column", def.GroupColumn)
	v.SetDefault("top_k", def.TopK)
	v.SetDefault("treatment", string(def.Treatment))
	v.SetDefault("undo_capacity", 10)
	v.SetDefault("export_dir", "exports")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("limits.min_gpa", lim.MinGPA)
	v.SetDefault("limits.max_gpa", lim.MaxGPA)
	v.SetDefault("limits.min_height_cm", lim.MinHeightCM)
	v.SetDefault("limits.max_height_cm", lim.MaxHeightCM)
	v.SetDefault("limits.min_weight_kg", lim.MinWeightKG)
	v.SetDefault("limits.max_weight_kg", lim.MaxWeightKG)
}

// PipelineOptions converts the analytics keys into pipeline options.
func (c *Global) PipelineOptions() (analysis.Options, error) {
	o := analysis.DefaultOptions()
	if c.ReferenceDate != "" {
		t, err := time.Parse(dataset.DateLayout, c.ReferenceDate)
		if err != nil {
			return o, fmt.Errorf("invalid reference_date %q: %w", c.ReferenceDate, err)
		}
		o.ReferenceDate = t
	}
	if c.IQRMultiplier != 0 {
		o.Multiplier = c.IQRMultiplier
	}
	if c.TopK != 0 {
		o.TopK = c.TopK
	}
	if c.GroupColumn != "" {
		o.GroupColumn = c.GroupColumn
	}
	if len(c.ZScoreColumns) > 0 {
		o.ZScoreColumns = c.ZScoreColumns
	}
	if len(c.OutlierColumns) > 0 {
		o.OutlierColumns = c.OutlierColumns
	}
	if len(c.SummaryColumns) > 0 {
		o.SummaryColumns = c.SummaryColumns
	}
	t, err := analysis.ParseTreatment(c.Treatment)
	if err != nil {
		return o, err
	}
	o.Treatment = t
	return o, o.Validate()
}

// Set assigns one key from its text form. Unknown keys and malformed values
// are rejected without touching c.
func (c *Global) Set(key, val string) error {
	switch key {
	case "db_driver":
		switch strings.ToLower(val) {
		case "sqlite", "sqlite3":
			c.DBDriver = "sqlite"
		case "postgres", "postgresql", "pq":
			c.DBDriver = "postgres"
		default:
			return fmt.Errorf("invalid db_driver: %s (use sqlite or postgres)", val)
		}
	case "db_dsn":
		c.DBDSN = val
	case "reference_date":
		if _, err := time.Parse(dataset.DateLayout, val); err != nil {
			return fmt.Errorf("invalid date for reference_date: %v (use YYYY-MM-DD)", val)
		}
		c.ReferenceDate = val
	case "iqr_multiplier":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || !(f > 0) {
			return fmt.Errorf("invalid positive float for iqr_multiplier: %v", val)
		}
		c.IQRMultiplier = f
	case "top_k":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for top_k: %v", val)
		}
		c.TopK = i
	case "undo_capacity":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for undo_capacity: %v", val)
		}
		c.UndoCapacity = i
	case "treatment":
		t, err := analysis.ParseTreatment(val)
		if err != nil {
			return err
		}
		c.Treatment = string(t)
	case "group_column":
		c.GroupColumn = val
	case "zscore_columns":
		c.ZScoreColumns = splitList(val)
	case "outlier_columns":
		c.OutlierColumns = splitList(val)
	case "summary_columns":
		c.SummaryColumns = splitList(val)
	case "export_dir":
		c.ExportDir = val
	case "server_addr":
		c.ServerAddr = val
	case "log_level":
		switch val {
		case "debug", "info", "warn", "error":
			c.LogLevel = val
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	case "log_format":
		if val != "console" && val != "json" {
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
