package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Txoflow   TxoflowConfig   `yaml:"txoflow"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Reader    ReaderConfig    `yaml:"reader"`
	Writer    WriterConfig    `yaml:"writer"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type TxoflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type AnalyticsConfig struct {
	RiskFreeRate       float64         `yaml:"risk_free_rate"`
	ContractMultiplier float64         `yaml:"contract_multiplier"`
	MaxWorkers         int             `yaml:"max_workers"`
	TimeFloor          float64         `yaml:"time_floor"`
	FocusRange         float64         `yaml:"focus_range"`
	Solver             SolverConfig    `yaml:"solver"`
	DeltaBand          DeltaBandConfig `yaml:"delta_band"`
}

type SolverConfig struct {
	InitialSigma  float64 `yaml:"initial_sigma"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

type DeltaBandConfig struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

type CalendarConfig struct {
	// SettlementOverrides maps contract code fragments to fixed settlement
	// dates in YYYY/MM/DD form, for weeks where the exchange announces an
	// off-schedule settlement.
	SettlementOverrides map[string]string `yaml:"settlement_overrides"`
}

type ReaderConfig struct {
	SnapshotDir string `yaml:"snapshot_dir"`
	Days        int    `yaml:"days"`
}

type WriterConfig struct {
	Enabled     bool   `yaml:"enabled"`
	OutputDir   string `yaml:"output_dir"`
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// LoadConfig reads, defaults and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Analytics: AnalyticsConfig{
			RiskFreeRate:       0.015,
			ContractMultiplier: 50,
			MaxWorkers:         4,
			TimeFloor:          0.001,
			FocusRange:         1200,
			Solver: SolverConfig{
				InitialSigma:  0.30,
				MaxIterations: 50,
				Tolerance:     1e-4,
			},
			DeltaBand: DeltaBandConfig{Low: 0.2, High: 0.3},
		},
		Reader: ReaderConfig{Days: 3},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// ParsedSettlementOverrides parses the configured override table into dates.
// Unparseable entries are reported as an error rather than dropped so a
// typo never silently reverts a contract to calendar rules.
func (c *CalendarConfig) ParsedSettlementOverrides() (map[string]time.Time, error) {
	if len(c.SettlementOverrides) == 0 {
		return nil, nil
	}
	out := make(map[string]time.Time, len(c.SettlementOverrides))
	for code, raw := range c.SettlementOverrides {
		d, err := time.ParseInLocation("2006/01/02", raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("settlement override %q: %w", code, err)
		}
		out[strings.ToUpper(code)] = d
	}
	return out, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Txoflow.Name == "" {
		return fmt.Errorf("txoflow.name is required")
	}

	if cfg.Txoflow.Version == "" {
		return fmt.Errorf("txoflow.version is required")
	}

	if cfg.Analytics.RiskFreeRate < 0 {
		return fmt.Errorf("analytics.risk_free_rate must not be negative")
	}
	if cfg.Analytics.ContractMultiplier <= 0 {
		return fmt.Errorf("analytics.contract_multiplier must be greater than 0")
	}
	if cfg.Analytics.MaxWorkers <= 0 {
		return fmt.Errorf("analytics.max_workers must be greater than 0")
	}
	if cfg.Analytics.TimeFloor <= 0 {
		return fmt.Errorf("analytics.time_floor must be greater than 0")
	}
	if cfg.Analytics.Solver.InitialSigma <= 0 {
		return fmt.Errorf("analytics.solver.initial_sigma must be greater than 0")
	}
	if cfg.Analytics.Solver.MaxIterations <= 0 {
		return fmt.Errorf("analytics.solver.max_iterations must be greater than 0")
	}
	if cfg.Analytics.Solver.Tolerance <= 0 {
		return fmt.Errorf("analytics.solver.tolerance must be greater than 0")
	}
	if b := cfg.Analytics.DeltaBand; b.Low < 0 || b.High <= b.Low {
		return fmt.Errorf("analytics.delta_band must satisfy 0 <= low < high")
	}

	if cfg.Reader.SnapshotDir == "" {
		return fmt.Errorf("reader.snapshot_dir is required")
	}
	if cfg.Reader.Days < 1 {
		return fmt.Errorf("reader.days must be at least 1")
	}

	if _, err := cfg.Calendar.ParsedSettlementOverrides(); err != nil {
		return err
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
