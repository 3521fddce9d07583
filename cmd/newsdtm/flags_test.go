package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cognicore/newsdtm/pkg/newsdtm/config"
)

func testEnv() *config.Env {
	return &config.Env{AppEnv: "local", LogLevel: "info", OutputDir: "out", Workers: 4, DBPath: "/var/lib/newsdtm.db"}
}

// TestParseFlagsOverridesEnv tests that flags take precedence over env values
func TestParseFlagsOverridesEnv(t *testing.T) {
	o, err := parseFlags([]string{"-input", "raw", "-workers", "2", "-out", "artifacts", "-fill-policy", "cross_product"}, testEnv())
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.Input != "raw" || o.Workers != 2 || o.OutputDir != "artifacts" || o.FillPolicy != "cross_product" {
		t.Errorf("unexpected options %+v", o)
	}
	if o.DBPath != "/var/lib/newsdtm.db" {
		t.Errorf("db path should default to env, got %q", o.DBPath)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	cases := map[string][]string{
		"missing input":    {},
		"bad workers":      {"-input", "raw", "-workers", "0"},
		"bad fill policy":  {"-input", "raw", "-fill-policy", "zeros"},
		"half classifiers": {"-input", "raw", "-sentiment-url", "http://x"},
		"unknown flag":     {"-input", "raw", "-bogus"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseFlags(args, testEnv()); err == nil {
				t.Errorf("expected error for %v", args)
			}
		})
	}
}

// TestBuildPipelineNonExistentRules tests that a missing rules file is fatal
func TestBuildPipelineNonExistentRules(t *testing.T) {
	o := options{RulesPath: filepath.Join(t.TempDir(), "nonexistent.yaml"), Workers: 1}
	nop := zerolog.Nop()
	if _, err := buildPipeline(context.Background(), o, &nop); err == nil {
		t.Error("buildPipeline should fail with non-existent rules")
	}
}

// TestRun runs the command against the shipped configuration files
func TestRun(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "raw")
	if err := os.MkdirAll(input, 0o755); err != nil {
		t.Fatal(err)
	}
	payload := `{"data": [
		{"id": "10", "created_at": "2023-01-03T10:00:00Z", "text": "Alianza Lima ganó 2 partidos"},
		{"id": "11", "created_at": "2023-01-10T10:00:00Z", "text": "Esta es la portada de hoy"}
	]}`
	if err := os.WriteFile(filepath.Join(input, "2023w1_data_trome.json"), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	o := options{
		Input:        input,
		RulesPath:    "../../configs/rules.yaml",
		StoplistPath: "../../configs/stoplist_es.yaml",
		LexiconPath:  "../../configs/lemmas_es.yaml",
		OutputDir:    filepath.Join(tmpDir, "out"),
		DBPath:       filepath.Join(tmpDir, "runs.db"),
		MetricsFile:  filepath.Join(tmpDir, "newsdtm.prom"),
		Workers:      2,
	}
	nop := zerolog.Nop()
	if err := run(context.Background(), o, &nop); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"dtm-(2023, 1).csv", "dtm_outlet-(2023, 1).csv", "data_clean-(2023, 2).json"} {
		if _, err := os.Stat(filepath.Join(o.OutputDir, name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}
	csv, err := os.ReadFile(filepath.Join(o.OutputDir, "dtm-(2023, 1).csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(csv), "10,partido,1") {
		t.Errorf("expected lexicon lemma in matrix, got:\n%s", csv)
	}

	metrics, err := os.ReadFile(o.MetricsFile)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(metrics), "newsdtm_drops_total") {
		t.Error("metrics file should carry the drop counter")
	}
	if _, err := os.Stat(o.DBPath); err != nil {
		t.Errorf("expected database file: %v", err)
	}
}
