package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tagquorum/tagquorum/internal/config"
	"github.com/tagquorum/tagquorum/internal/report"
)

// parseRunFlags parses args against a fresh run command without executing it
// and returns the resulting config.
func parseRunFlags(t *testing.T, args ...string) *config.Config {
	t.Helper()

	cmd := NewRunCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := buildConfig(cmd, cmd.Flags().Args())
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}
	return cfg
}

// TestNewRunCmdFlags tests flag registration.
func TestNewRunCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRunCmd()
	for _, name := range []string{
		"min-redundancy", "pass-threshold", "answers", "batch",
		"config", "json", "markdown", "output", "no-db",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %q not registered", name)
		}
	}
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := parseRunFlags(t, "batch.json")

		if cfg.MinimumRedundancy != config.DefaultMinimumRedundancy {
			t.Errorf("redundancy = %d, want %d", cfg.MinimumRedundancy, config.DefaultMinimumRedundancy)
		}
		if cfg.PassThreshold != config.DefaultPassThreshold {
			t.Errorf("threshold = %d, want %d", cfg.PassThreshold, config.DefaultPassThreshold)
		}
		if cfg.BatchSize != config.DefaultBatchSize {
			t.Errorf("batch size = %d, want %d", cfg.BatchSize, config.DefaultBatchSize)
		}
		if cfg.AnswerMode {
			t.Error("answer mode should default to false")
		}
		if !cfg.SaveToDB {
			t.Error("database persistence should default to on")
		}
		if len(cfg.Inputs) != 1 || cfg.Inputs[0] != "batch.json" {
			t.Errorf("inputs = %v, want [batch.json]", cfg.Inputs)
		}
	})

	t.Run("explicit flags", func(t *testing.T) {
		cfg := parseRunFlags(t,
			"-r", "5", "-p", "3", "-a", "-b", "8", "--no-db", "a.json", "b.json")

		if cfg.MinimumRedundancy != 5 || cfg.PassThreshold != 3 {
			t.Errorf("agreement settings = %d/%d, want 5/3", cfg.MinimumRedundancy, cfg.PassThreshold)
		}
		if !cfg.AnswerMode {
			t.Error("answer mode not set")
		}
		if cfg.BatchSize != 8 {
			t.Errorf("batch size = %d, want 8", cfg.BatchSize)
		}
		if cfg.SaveToDB {
			t.Error("no-db did not disable persistence")
		}
		if len(cfg.Inputs) != 2 {
			t.Errorf("inputs = %v, want two files", cfg.Inputs)
		}
	})

	t.Run("explicit config file is loaded", func(t *testing.T) {
		content := "defaults:\n  pass_threshold: 4\n"
		path := filepath.Join(t.TempDir(), ".tagquorum")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg := parseRunFlags(t, "-c", path, "batch.json")
		if cfg.TaskConfigs == nil {
			t.Fatal("task configs not loaded")
		}
		if got := cfg.Settings("any-task").PassThreshold; got != 4 {
			t.Errorf("pass threshold from config file = %d, want 4", got)
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		cmd := NewRunCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing, "batch.json"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildConfig(cmd, cmd.Flags().Args()); err == nil {
			t.Error("expected an error for missing explicit config file")
		}
	})
}

// TestNewReportWriter tests report format selection.
func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	t.Run("default is the simple writer", func(t *testing.T) {
		t.Parallel()

		w := newReportWriter(config.NewConfig(), &buf)
		if _, ok := w.(*report.SimpleWriter); !ok {
			t.Errorf("writer type = %T, want *report.SimpleWriter", w)
		}
	})

	t.Run("json flag selects the json writer", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.JSONReport = true
		w := newReportWriter(cfg, &buf)
		if _, ok := w.(*report.FullJSONWriter); !ok {
			t.Errorf("writer type = %T, want *report.FullJSONWriter", w)
		}
	})

	t.Run("markdown flag selects the markdown writer", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.MarkdownReport = true
		w := newReportWriter(cfg, &buf)
		if _, ok := w.(*report.MarkdownWriter); !ok {
			t.Errorf("writer type = %T, want *report.MarkdownWriter", w)
		}
	})
}
