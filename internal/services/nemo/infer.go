package nemo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"nemoctl/internal/config"
	"nemoctl/internal/logging"
)

// Request describes one punctuation/capitalization inference invocation.
// Zero-valued numeric fields are not defaulted here; seed a Request with
// FromConfig so an explicit zero (for example --margin 0) survives intact.
type Request struct {
	InputPath  string
	OutputPath string
	LabelsPath string

	PretrainedModel string
	ModelPath       string

	MaxSeqLength int
	Step         int
	Margin       int
	BatchSize    int

	IntactSentences   bool
	AddSourceNumWords bool
}

// FromConfig returns a Request seeded with the configured inference defaults.
func FromConfig(cfg *config.Config) Request {
	return Request{
		PretrainedModel:   cfg.Inference.PretrainedModel,
		ModelPath:         cfg.Inference.ModelPath,
		MaxSeqLength:      cfg.Inference.MaxSeqLength,
		Step:              cfg.Inference.Step,
		Margin:            cfg.Inference.Margin,
		BatchSize:         cfg.Inference.BatchSize,
		IntactSentences:   true,
		AddSourceNumWords: true,
	}
}

// Validate checks a resolved Request before invocation.
func (r Request) Validate() error {
	if strings.TrimSpace(r.InputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return errors.New("output path required")
	}
	hasPretrained := strings.TrimSpace(r.PretrainedModel) != ""
	hasModelPath := strings.TrimSpace(r.ModelPath) != ""
	if hasPretrained == hasModelPath {
		return errors.New("exactly one of pretrained model name or model path is required")
	}
	if r.MaxSeqLength <= 0 {
		return errors.New("max sequence length must be positive")
	}
	if r.Step <= 0 {
		return errors.New("step must be positive")
	}
	if r.Margin < 0 {
		return errors.New("margin must be >= 0")
	}
	if r.Step+2*r.Margin > r.MaxSeqLength {
		return errors.New("step plus twice the margin must not exceed max sequence length")
	}
	if r.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	return nil
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Runner invokes the punctuation/capitalization inference script locally.
type Runner struct {
	python  string
	script  string
	timeout time.Duration
	exec    Executor
}

// NewRunner constructs a Runner from configuration.
func NewRunner(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	runner := &Runner{
		python:  cfg.PythonBinary(),
		script:  cfg.NeMo.InferScript,
		timeout: time.Duration(cfg.Inference.Timeout) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Args renders the python argument vector for a request. Step and margin
// are always rendered explicitly, including zero values.
func (r *Runner) Args(req Request) []string {
	args := []string{r.script,
		"--input_text", req.InputPath,
		"--output_text", req.OutputPath,
	}
	if strings.TrimSpace(req.LabelsPath) != "" {
		args = append(args, "--output_labels", req.LabelsPath)
	}
	if strings.TrimSpace(req.ModelPath) != "" {
		args = append(args, "--model_path", req.ModelPath)
	} else {
		args = append(args, "--pretrained_name", req.PretrainedModel)
	}
	args = append(args,
		"--max_seq_length", strconv.Itoa(req.MaxSeqLength),
		"--step", strconv.Itoa(req.Step),
		"--margin", strconv.Itoa(req.Margin),
		"--batch_size", strconv.Itoa(req.BatchSize),
	)
	if req.IntactSentences {
		args = append(args, "--make_queries_contain_intact_sentences")
	}
	if req.AddSourceNumWords {
		args = append(args, "--add_source_num_words_to_batch")
	}
	return args
}

// Run validates and executes the inference invocation, forwarding script
// output to the logger. It returns the script's terminal error, if any.
func (r *Runner) Run(ctx context.Context, req Request, logger *slog.Logger) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log := logging.NewComponentLogger(logger, "inference")
	if err := r.exec.Run(runCtx, r.python, r.Args(req), func(line string) {
		log.Debug(line)
	}); err != nil {
		return fmt.Errorf("punctuation inference: %w", err)
	}
	return nil
}
