package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/mockensembl"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/version"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENSEMBL_BASE_URL", "WORKERS", "REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "LOG_LEVEL", "ENV"} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func mockService(t *testing.T) (*mockensembl.Server, string) {
	t.Helper()
	srv := mockensembl.New()
	srv.SetHomologies("human", "ENSG0001", []mockensembl.Homology{
		{TargetSpecies: "mouse", TargetID: "ENSMUSG0001"},
		{TargetSpecies: "rat", TargetID: "ENSRNOG0001"},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts.URL
}

func TestEnrichCommand(t *testing.T) {
	clearEnv(t)
	srv, baseURL := mockService(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "genes.csv")
	out := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(in, []byte("gene_ids\nENSG0001\n7\nNOPE\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	for _, form := range [][]string{
		{"enrich", in, "human", out},
		{in, "human", out},
	} {
		args := append(form, "--tspecies", "mouse", "--base-url", baseURL, "--log-level", "error")
		code, stdout, stderr := run(t, args...)
		if code != 0 {
			t.Fatalf("%v: exit %d, stderr=%s", form, code, stderr)
		}
		if !strings.Contains(stdout, "3 rows (1 ok, 1 failed, 1 skipped)") {
			t.Fatalf("%v: unexpected summary %q", form, stdout)
		}

		got, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		want := ",gene_ids,Count,orthologues\n0,ENSG0001,2,ENSMUSG0001\n1,7,0,\n2,NOPE,0,\n"
		if string(got) != want {
			t.Fatalf("%v: unexpected output:\n%q\nwant:\n%q", form, got, want)
		}
	}

	calls := srv.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 calls, got %d", len(calls))
	}
	if ua := calls[0].Header.Get("User-Agent"); ua != version.UserAgent() {
		t.Fatalf("unexpected user agent %q", ua)
	}
	if q := calls[0].Query; q.Get("type") != "orthologues" || q.Get("sequence") != "none" || q.Get("target_species") != "mouse" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestEnrichCommand_ConfigFileAndFlags(t *testing.T) {
	clearEnv(t)
	srv, baseURL := mockService(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "genes.csv")
	out := filepath.Join(dir, "out.csv")
	cfg := filepath.Join(dir, "homology.yaml")
	if err := os.WriteFile(in, []byte("ensembl_id\nENSG0001\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	t.Setenv("MOCK_URL", baseURL)
	if err := os.WriteFile(cfg, []byte("ensembl:\n  base_url: ${MOCK_URL}\n  user_agent: lab/1\ntable:\n  column: ensembl_id\n  no_index: true\nlogging:\n  level: error\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	code, _, stderr := run(t, "enrich", in, "human", out, "--config", cfg, "--type", "paralogues", "--sequence", "protein")
	if code != 0 {
		t.Fatalf("exit %d, stderr=%s", code, stderr)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "ensembl_id,Count,paralogues\nENSG0001,2,\"ENSMUSG0001,ENSRNOG0001\"\n"; string(got) != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}

	calls := srv.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if ua := calls[0].Header.Get("User-Agent"); ua != "lab/1" {
		t.Fatalf("unexpected user agent %q", ua)
	}
	if q := calls[0].Query; q.Get("type") != "paralogues" || q.Get("sequence") != "protein" || q.Has("target_species") {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestUsageErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"too few args", []string{"enrich", "genes.csv", "human"}},
		{"root too few args", []string{"genes.csv"}},
		{"unknown flag", []string{"enrich", "a", "b", "c", "--bogus"}},
		{"invalid workers", []string{"enrich", "a", "b", "c", "--workers", "0"}},
		{"bad log level", []string{"enrich", "a", "b", "c", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.args...)
			if code != 2 {
				t.Fatalf("exit %d want 2, stderr=%s", code, stderr)
			}
			if !strings.HasPrefix(stderr, "homology: ") {
				t.Fatalf("unexpected stderr %q", stderr)
			}
		})
	}
}

func TestRunFailureExitsOne(t *testing.T) {
	clearEnv(t)
	_, baseURL := mockService(t)
	dir := t.TempDir()

	code, _, stderr := run(t, "enrich", filepath.Join(dir, "missing.csv"), "human", filepath.Join(dir, "out.csv"), "--base-url", baseURL, "--log-level", "error")
	if code != 1 {
		t.Fatalf("exit %d want 1, stderr=%s", code, stderr)
	}
	if !strings.Contains(stderr, "local run failed") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestVersionAndHelp(t *testing.T) {
	code, stdout, _ := run(t, "version")
	if code != 0 || strings.TrimSpace(stdout) != version.Current {
		t.Fatalf("version: exit %d stdout %q", code, stdout)
	}

	code, stdout, _ = run(t)
	if code != 0 || !strings.Contains(stdout, "homology enrich") {
		t.Fatalf("help: exit %d stdout %q", code, stdout)
	}
}
