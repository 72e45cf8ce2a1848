package launch_test

import (
	"strings"
	"testing"

	"nemoctl/internal/config"
	"nemoctl/internal/launch"
	"nemoctl/internal/overrides"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	return &cfg
}

func TestPlanTrainingEmbedsCredentialAndGPUCount(t *testing.T) {
	cfg := testConfig(t)

	plan, err := launch.PlanTraining(cfg, launch.TrainingRequest{
		WandbAPIKey: "ABC123",
		GPUs:        1,
	})
	if err != nil {
		t.Fatalf("PlanTraining returned error: %v", err)
	}

	if !strings.Contains(plan.CommandLine, "wandb login ABC123") {
		t.Fatalf("command line missing login step: %q", plan.CommandLine)
	}
	if got := strings.Count(plan.CommandLine, "ABC123"); got != 1 {
		t.Fatalf("credential must appear exactly once, got %d occurrences", got)
	}
	if !strings.Contains(plan.CommandLine, "trainer.gpus=1") {
		t.Fatalf("command line missing gpu override: %q", plan.CommandLine)
	}
	if got := strings.Count(plan.CommandLine, "trainer.gpus="); got != 1 {
		t.Fatalf("trainer.gpus must appear exactly once, got %d", got)
	}
}

func TestPlanTrainingEachOverrideRenderedOnce(t *testing.T) {
	cfg := testConfig(t)

	extra, err := overrides.Parse([]string{
		"trainer.max_steps=150000",
		"model.train_ds.src_file_name=/data/train.en",
		"trainer.gpus=8",
	})
	if err != nil {
		t.Fatalf("parse extras: %v", err)
	}

	plan, err := launch.PlanTraining(cfg, launch.TrainingRequest{
		WandbAPIKey: "key",
		Extra:       extra,
	})
	if err != nil {
		t.Fatalf("PlanTraining returned error: %v", err)
	}

	for _, key := range plan.Overrides.Keys() {
		if got := strings.Count(plan.CommandLine, key+"="); got != 1 {
			t.Errorf("override %s rendered %d times", key, got)
		}
	}
	if !strings.Contains(plan.CommandLine, "trainer.gpus=8") {
		t.Fatalf("expected extra override to replace the default gpu count: %q", plan.CommandLine)
	}
}

func TestPlanTrainingSetupBlockOrdering(t *testing.T) {
	cfg := testConfig(t)

	plan, err := launch.PlanTraining(cfg, launch.TrainingRequest{WandbAPIKey: "key"})
	if err != nil {
		t.Fatalf("PlanTraining returned error: %v", err)
	}

	script := plan.CommandLine
	ordered := []string{
		"set -e -x",
		"git clone",
		"git checkout",
		"pip install",
		"export OMP_NUM_THREADS=1",
		"export PYTHONPATH=",
		"wandb login",
		"set +e +x",
		"enc_dec_nmt.py",
	}
	last := -1
	for _, marker := range ordered {
		idx := strings.Index(script, marker)
		if idx < 0 {
			t.Fatalf("script missing %q: %s", marker, script)
		}
		if idx < last {
			t.Fatalf("script step %q out of order: %s", marker, script)
		}
		last = idx
	}
}

func TestPlanTrainingGeneratesRunName(t *testing.T) {
	cfg := testConfig(t)

	first, err := launch.PlanTraining(cfg, launch.TrainingRequest{WandbAPIKey: "key"})
	if err != nil {
		t.Fatalf("PlanTraining returned error: %v", err)
	}
	second, err := launch.PlanTraining(cfg, launch.TrainingRequest{WandbAPIKey: "key"})
	if err != nil {
		t.Fatalf("PlanTraining returned error: %v", err)
	}

	if !strings.HasPrefix(first.RunName, "nmt-en-de-") {
		t.Fatalf("unexpected run name: %q", first.RunName)
	}
	if first.RunName == second.RunName {
		t.Fatalf("expected unique run names, got %q twice", first.RunName)
	}
	if name, _ := first.Overrides.Get("exp_manager.wandb_logger_kwargs.name"); name != first.RunName {
		t.Fatalf("run name override mismatch: %q vs %q", name, first.RunName)
	}
}

func TestPlanTrainingRejectsMissingCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Training.WandbAPIKey = ""

	if _, err := launch.PlanTraining(cfg, launch.TrainingRequest{}); err == nil {
		t.Fatal("expected error without wandb API key")
	}
}

func TestPlanTrainingRejectsBadLanguagePair(t *testing.T) {
	cfg := testConfig(t)

	if _, err := launch.PlanTraining(cfg, launch.TrainingRequest{
		WandbAPIKey:    "key",
		SourceLanguage: "en!!",
	}); err == nil {
		t.Fatal("expected error for bad source language")
	}

	if _, err := launch.PlanTraining(cfg, launch.TrainingRequest{
		WandbAPIKey:    "key",
		SourceLanguage: "de",
	}); err == nil {
		t.Fatal("expected error for identical language pair")
	}
}
