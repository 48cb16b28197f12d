package config

import (
	"os"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `txoflow:
  name: "TestApp"
  version: "1.0"
reader:
  snapshot_dir: testdata/snapshots
  days: 2
calendar:
  settlement_overrides:
    "202501W1": "2025/01/02"
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Txoflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Txoflow.Name)
	}
	if cfg.Reader.Days != 2 {
		t.Errorf("unexpected reader days: %d", cfg.Reader.Days)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Analytics.RiskFreeRate != 0.015 {
		t.Errorf("risk_free_rate default = %v", cfg.Analytics.RiskFreeRate)
	}
	if cfg.Analytics.ContractMultiplier != 50 {
		t.Errorf("contract_multiplier default = %v", cfg.Analytics.ContractMultiplier)
	}
	if cfg.Analytics.Solver.MaxIterations != 50 {
		t.Errorf("solver max_iterations default = %v", cfg.Analytics.Solver.MaxIterations)
	}
	if cfg.Analytics.Solver.InitialSigma != 0.30 {
		t.Errorf("solver initial_sigma default = %v", cfg.Analytics.Solver.InitialSigma)
	}
	if cfg.Analytics.DeltaBand.Low != 0.2 || cfg.Analytics.DeltaBand.High != 0.3 {
		t.Errorf("delta band default = %+v", cfg.Analytics.DeltaBand)
	}
}

func TestParsedSettlementOverrides(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	overrides, err := cfg.Calendar.ParsedSettlementOverrides()
	if err != nil {
		t.Fatalf("ParsedSettlementOverrides failed: %v", err)
	}
	d, ok := overrides["202501W1"]
	if !ok {
		t.Fatalf("override missing: %v", overrides)
	}
	if d.Year() != 2025 || d.Month() != 1 || d.Day() != 2 {
		t.Errorf("unexpected override date: %v", d)
	}
}

func TestParsedSettlementOverridesRejectsBadDate(t *testing.T) {
	cfg := CalendarConfig{SettlementOverrides: map[string]string{"202501W1": "not-a-date"}}
	if _, err := cfg.ParsedSettlementOverrides(); err == nil {
		t.Fatalf("expected error for unparseable override date")
	}
}

func TestValidateRejectsMissingSnapshotDir(t *testing.T) {
	content := `txoflow:
  name: "TestApp"
  version: "1.0"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for missing snapshot_dir")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
