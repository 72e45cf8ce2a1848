// Package launch plans NGC training submissions: it renders the setup
// script that runs inside the job container (clone, install, environment,
// wandb login) followed by the NeMo training invocation with its
// hydra-style overrides.
package launch

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"nemoctl/internal/config"
	"nemoctl/internal/overrides"
	"nemoctl/internal/shellutil"
)

// TrainingRequest carries per-submission inputs layered over config defaults.
type TrainingRequest struct {
	WandbAPIKey    string
	GPUs           int
	RunName        string
	SourceLanguage string
	TargetLanguage string
	Extra          *overrides.Set
}

// Plan is a fully rendered training submission.
type Plan struct {
	RunName     string
	Overrides   *overrides.Set
	CommandLine string
}

// PlanTraining resolves a TrainingRequest against cfg and renders the batch
// command line. The wandb API key lands in the login step and nowhere else.
func PlanTraining(cfg *config.Config, req TrainingRequest) (*Plan, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	apiKey := strings.TrimSpace(req.WandbAPIKey)
	if apiKey == "" {
		apiKey = cfg.Training.WandbAPIKey
	}
	if apiKey == "" {
		return nil, errors.New("wandb API key required: pass it as an argument or set training.wandb_api_key")
	}

	gpus := req.GPUs
	if gpus <= 0 {
		gpus = cfg.Training.GPUs
	}

	src, tgt, err := resolveLanguagePair(cfg, req)
	if err != nil {
		return nil, err
	}

	runName := strings.TrimSpace(req.RunName)
	if runName == "" {
		runName = NewRunName(cfg.Training.RunNamePrefix, src, tgt)
	}

	set := overrides.New()
	set.SetInt("trainer.gpus", gpus)
	set.Set("model.src_language", src)
	set.Set("model.tgt_language", tgt)
	set.Set("exp_manager.exp_dir", cfg.NGC.ResultPath)
	set.SetBool("exp_manager.create_wandb_logger", true)
	set.Set("exp_manager.wandb_logger_kwargs.name", runName)
	set.Set("exp_manager.wandb_logger_kwargs.project", cfg.Training.RunNamePrefix)
	set.Merge(req.Extra)

	script := renderScript(cfg, apiKey, set)

	return &Plan{
		RunName:     runName,
		Overrides:   set,
		CommandLine: script,
	}, nil
}

func resolveLanguagePair(cfg *config.Config, req TrainingRequest) (string, string, error) {
	src := strings.ToLower(strings.TrimSpace(req.SourceLanguage))
	if src == "" {
		src = cfg.Training.SourceLanguage
	}
	tgt := strings.ToLower(strings.TrimSpace(req.TargetLanguage))
	if tgt == "" {
		tgt = cfg.Training.TargetLanguage
	}
	for _, tag := range []string{src, tgt} {
		if _, err := language.Parse(tag); err != nil {
			return "", "", fmt.Errorf("unknown language tag %q", tag)
		}
	}
	if src == tgt {
		return "", "", errors.New("source and target languages must differ")
	}
	return src, tgt, nil
}

// NewRunName builds a run name from the prefix, language pair, and a short
// unique suffix so repeated submissions stay distinguishable in wandb.
func NewRunName(prefix, src, tgt string) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%s-%s-%s", prefix, src, tgt, suffix)
}

// renderScript assembles the container command string. Setup runs under
// `set -e -x` so any failed step aborts the job; that is switched off
// before the training invocation, whose exit status stands on its own.
func renderScript(cfg *config.Config, apiKey string, set *overrides.Set) string {
	checkout := path.Join(cfg.NeMo.CodeDir, "NeMo")

	var lines []string
	lines = append(lines,
		"set -e -x",
		fmt.Sprintf("git clone %s %s", shellutil.Quote(cfg.NeMo.RepoURL), shellutil.Quote(checkout)),
		fmt.Sprintf("cd %s", shellutil.Quote(checkout)),
		fmt.Sprintf("git checkout %s", shellutil.Quote(cfg.NeMo.Branch)),
		"pip install --upgrade pip",
		"pip install -e .",
		"pip install wandb",
		fmt.Sprintf("export OMP_NUM_THREADS=%d", cfg.Training.OMPThreads),
		fmt.Sprintf("export PYTHONPATH=%s:${PYTHONPATH}", shellutil.Quote(checkout)),
		fmt.Sprintf("wandb login %s", apiKey),
		"set +e +x",
	)

	train := make([]string, 0, 2+set.Len())
	train = append(train, cfg.PythonBinary(), cfg.NeMo.TrainScript)
	train = append(train, set.Args()...)
	lines = append(lines, strings.Join(train, " "))

	// Semicolon joins keep `set -e` in charge of the setup block the same
	// way newlines do in a heredoc script.
	return strings.Join(lines, "; ")
}
