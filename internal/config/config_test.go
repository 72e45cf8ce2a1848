package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"nemoctl/internal/config"
)

func TestLoadDefaultConfigUsesEnvWandbKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("WANDB_API_KEY", "env-wandb")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "nemoctl", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.NGC.Instance != "dgx1v.32g.1.norm" {
		t.Fatalf("unexpected instance: %q", cfg.NGC.Instance)
	}
	if cfg.NGC.Image != "nvcr.io/nvidia/pytorch:21.03-py3" {
		t.Fatalf("unexpected image: %q", cfg.NGC.Image)
	}
	if cfg.Training.WandbAPIKey != "env-wandb" {
		t.Fatalf("expected wandb key from env, got %q", cfg.Training.WandbAPIKey)
	}
	if cfg.Training.GPUs != 1 {
		t.Fatalf("unexpected gpu count: %d", cfg.Training.GPUs)
	}
	if cfg.Inference.Step != 126 {
		t.Fatalf("unexpected inference step: %d", cfg.Inference.Step)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir, cfg.Paths.DataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nemoctl.toml")

	type payload struct {
		NGC struct {
			Instance      string   `toml:"instance"`
			DatasetMounts []string `toml:"dataset_mounts"`
		} `toml:"ngc"`
		Training struct {
			GPUs           int    `toml:"gpus"`
			TargetLanguage string `toml:"target_language"`
		} `toml:"training"`
		Inference struct {
			Margin int `toml:"margin"`
		} `toml:"inference"`
	}
	custom := payload{}
	custom.NGC.Instance = "dgx1v.32g.8.norm"
	custom.NGC.DatasetMounts = []string{"68792:/data"}
	custom.Training.GPUs = 8
	custom.Training.TargetLanguage = "fr"
	custom.Inference.Margin = 0
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.NGC.Instance != "dgx1v.32g.8.norm" {
		t.Fatalf("expected instance from file, got %q", cfg.NGC.Instance)
	}
	if len(cfg.NGC.DatasetMounts) != 1 || cfg.NGC.DatasetMounts[0] != "68792:/data" {
		t.Fatalf("unexpected dataset mounts: %v", cfg.NGC.DatasetMounts)
	}
	if cfg.Training.GPUs != 8 {
		t.Fatalf("expected 8 gpus, got %d", cfg.Training.GPUs)
	}
	if cfg.Training.TargetLanguage != "fr" {
		t.Fatalf("expected target language fr, got %q", cfg.Training.TargetLanguage)
	}
	if cfg.Inference.Margin != 0 {
		t.Fatalf("expected explicit zero margin to survive, got %d", cfg.Inference.Margin)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[ngc]") {
		t.Fatalf("sample config missing ngc section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.NGC.SubmitTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive submit timeout")
	}

	cfg = config.Default()
	cfg.Training.GPUs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero gpu count")
	}

	cfg = config.Default()
	cfg.Training.SourceLanguage = "en!!"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bad language tag")
	}

	cfg = config.Default()
	cfg.Training.TargetLanguage = cfg.Training.SourceLanguage
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for identical language pair")
	}

	cfg = config.Default()
	cfg.NGC.DatasetMounts = []string{"missing-colon"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed dataset mount")
	}

	cfg = config.Default()
	cfg.Inference.Step = 512
	cfg.Inference.Margin = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when step plus margins exceed max_seq_length")
	}
}
