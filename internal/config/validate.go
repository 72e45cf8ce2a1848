package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateNGC(); err != nil {
		return err
	}
	if err := c.validateNeMo(); err != nil {
		return err
	}
	if err := c.validateTraining(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNGC() error {
	if c.NGC.Instance == "" {
		return errors.New("ngc.instance must be set")
	}
	if c.NGC.Image == "" {
		return errors.New("ngc.image must be set")
	}
	if !strings.HasPrefix(c.NGC.ResultPath, "/") {
		return errors.New("ngc.result_path must be an absolute container path")
	}
	for _, mount := range c.NGC.DatasetMounts {
		if !strings.Contains(mount, ":") {
			return fmt.Errorf("ngc.dataset_mounts entry %q must use id:mountpoint form", mount)
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"ngc.submit_timeout": c.NGC.SubmitTimeout,
		"ngc.query_timeout":  c.NGC.QueryTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNeMo() error {
	if c.NeMo.RepoURL == "" {
		return errors.New("nemo.repo_url must be set")
	}
	if c.NeMo.Branch == "" {
		return errors.New("nemo.branch must be set")
	}
	if !strings.HasPrefix(c.NeMo.CodeDir, "/") {
		return errors.New("nemo.code_dir must be an absolute container path")
	}
	return nil
}

func (c *Config) validateTraining() error {
	if c.Training.GPUs <= 0 {
		return errors.New("training.gpus must be positive")
	}
	if c.Training.OMPThreads <= 0 {
		return errors.New("training.omp_threads must be positive")
	}
	for key, value := range map[string]string{
		"training.source_language": c.Training.SourceLanguage,
		"training.target_language": c.Training.TargetLanguage,
	} {
		if _, err := language.Parse(value); err != nil {
			return fmt.Errorf("%s: unknown language tag %q", key, value)
		}
	}
	if c.Training.SourceLanguage == c.Training.TargetLanguage {
		return errors.New("training.source_language and training.target_language must differ")
	}
	return nil
}

func (c *Config) validateInference() error {
	if c.Inference.MaxSeqLength <= 0 {
		return errors.New("inference.max_seq_length must be positive")
	}
	if c.Inference.Step <= 0 {
		return errors.New("inference.step must be positive")
	}
	if c.Inference.Margin < 0 {
		return errors.New("inference.margin must be >= 0")
	}
	if c.Inference.Step+2*c.Inference.Margin > c.Inference.MaxSeqLength {
		return errors.New("inference.step plus twice inference.margin must not exceed inference.max_seq_length")
	}
	if c.Inference.BatchSize <= 0 {
		return errors.New("inference.batch_size must be positive")
	}
	if c.Inference.Timeout <= 0 {
		return errors.New("inference.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
