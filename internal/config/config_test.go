package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENSEMBL_BASE_URL", "WORKERS", "REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "LOG_LEVEL", "ENV"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "homology.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ensembl.BaseURL != "https://rest.ensembl.org" {
		t.Errorf("BaseURL=%q", cfg.Ensembl.BaseURL)
	}
	if cfg.Batch.Workers != 1 {
		t.Errorf("Workers=%d want 1", cfg.Batch.Workers)
	}
	if cfg.Batch.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout=%s want 30s", cfg.Batch.RequestTimeout)
	}
	if cfg.Batch.RateLimitRPS != 0 {
		t.Errorf("RateLimitRPS=%g want 0", cfg.Batch.RateLimitRPS)
	}
	if cfg.Table.Column != "gene_ids" {
		t.Errorf("Column=%q", cfg.Table.Column)
	}
	if cfg.Logging.Env != "local" {
		t.Errorf("Env=%q", cfg.Logging.Env)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIRROR_HOST", "mirror.example.org")

	path := writeConfig(t, `
ensembl:
  base_url: https://${MIRROR_HOST}/rest
  user_agent: ${AGENT:-lab-pipeline/2}
batch:
  workers: 4
  request_timeout: 5s
  rate_limit_rps: 15
table:
  column: ensembl_id
  sheet: Genes
  no_index: true
logging:
  env: prod
  level: debug
journal:
  path: runs.db
metrics:
  textfile: homology.prom
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Ensembl: EnsemblConfig{BaseURL: "https://mirror.example.org/rest", UserAgent: "lab-pipeline/2"},
		Batch:   BatchConfig{Workers: 4, RequestTimeout: 5 * time.Second, RateLimitRPS: 15},
		Table:   TableConfig{Column: "ensembl_id", Sheet: "Genes", NoIndex: true},
		Logging: LoggingConfig{Env: "prod", Level: "debug"},
		Journal: JournalConfig{Path: "runs.db"},
		Metrics: MetricsConfig{Textfile: "homology.prom"},
	}
	if cfg != want {
		t.Fatalf("config mismatch:\ngot:  %+v\nwant: %+v", cfg, want)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKERS", "8")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("ENSEMBL_BASE_URL", "http://localhost:8080")
	t.Setenv("ENV", "dev")

	path := writeConfig(t, "batch:\n  workers: 2\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Batch.Workers != 8 || cfg.Batch.RequestTimeout != 2*time.Second || cfg.Batch.RateLimitRPS != 2.5 {
		t.Fatalf("unexpected batch config: %+v", cfg.Batch)
	}
	if cfg.Ensembl.BaseURL != "http://localhost:8080" || cfg.Logging.Env != "dev" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
	t.Run("bad yaml", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(writeConfig(t, "batch: [")); err == nil {
			t.Fatal("expected parse error")
		}
	})
	t.Run("bad env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WORKERS", "many")
		if _, err := Load(""); err == nil {
			t.Fatal("expected error for WORKERS=many")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"zero timeout", func(c *Config) { c.Batch.RequestTimeout = 0 }},
		{"negative rate", func(c *Config) { c.Batch.RateLimitRPS = -1 }},
		{"blank column", func(c *Config) { c.Table.Column = "  " }},
		{"unknown env", func(c *Config) { c.Logging.Env = "staging" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
