package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNGC()
	c.normalizeNeMo()
	c.normalizeTraining()
	c.normalizeInference()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNGC() {
	c.NGC.Binary = strings.TrimSpace(c.NGC.Binary)
	c.NGC.Org = strings.TrimSpace(c.NGC.Org)
	c.NGC.Team = strings.TrimSpace(c.NGC.Team)
	c.NGC.Instance = strings.TrimSpace(c.NGC.Instance)
	if c.NGC.Instance == "" {
		c.NGC.Instance = defaultNGCInstance
	}
	c.NGC.Image = strings.TrimSpace(c.NGC.Image)
	if c.NGC.Image == "" {
		c.NGC.Image = defaultNGCImage
	}
	c.NGC.ResultPath = strings.TrimSpace(c.NGC.ResultPath)
	if c.NGC.ResultPath == "" {
		c.NGC.ResultPath = defaultNGCResultPath
	}
	mounts := make([]string, 0, len(c.NGC.DatasetMounts))
	for _, mount := range c.NGC.DatasetMounts {
		trimmed := strings.TrimSpace(mount)
		if trimmed == "" {
			continue
		}
		mounts = append(mounts, trimmed)
	}
	c.NGC.DatasetMounts = mounts
	if c.NGC.SubmitTimeout <= 0 {
		c.NGC.SubmitTimeout = defaultNGCSubmitTimeout
	}
	if c.NGC.QueryTimeout <= 0 {
		c.NGC.QueryTimeout = defaultNGCQueryTimeout
	}
}

func (c *Config) normalizeNeMo() {
	c.NeMo.RepoURL = strings.TrimSpace(c.NeMo.RepoURL)
	if c.NeMo.RepoURL == "" {
		c.NeMo.RepoURL = defaultNeMoRepoURL
	}
	c.NeMo.Branch = strings.TrimSpace(c.NeMo.Branch)
	if c.NeMo.Branch == "" {
		c.NeMo.Branch = defaultNeMoBranch
	}
	c.NeMo.CodeDir = strings.TrimSpace(c.NeMo.CodeDir)
	if c.NeMo.CodeDir == "" {
		c.NeMo.CodeDir = defaultNeMoCodeDir
	}
	c.NeMo.PythonBinary = strings.TrimSpace(c.NeMo.PythonBinary)
	c.NeMo.TrainScript = strings.TrimSpace(c.NeMo.TrainScript)
	if c.NeMo.TrainScript == "" {
		c.NeMo.TrainScript = defaultNeMoTrainScript
	}
	c.NeMo.InferScript = strings.TrimSpace(c.NeMo.InferScript)
	if c.NeMo.InferScript == "" {
		c.NeMo.InferScript = defaultNeMoInferScript
	}
}

func (c *Config) normalizeTraining() {
	if c.Training.GPUs <= 0 {
		c.Training.GPUs = defaultTrainingGPUs
	}
	if c.Training.OMPThreads <= 0 {
		c.Training.OMPThreads = defaultTrainingOMPThreads
	}
	c.Training.RunNamePrefix = strings.TrimSpace(c.Training.RunNamePrefix)
	if c.Training.RunNamePrefix == "" {
		c.Training.RunNamePrefix = defaultRunNamePrefix
	}
	c.Training.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Training.SourceLanguage))
	if c.Training.SourceLanguage == "" {
		c.Training.SourceLanguage = defaultSourceLanguage
	}
	c.Training.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Training.TargetLanguage))
	if c.Training.TargetLanguage == "" {
		c.Training.TargetLanguage = defaultTargetLanguage
	}
	c.Training.WandbAPIKey = strings.TrimSpace(c.Training.WandbAPIKey)
	if c.Training.WandbAPIKey == "" {
		if value, ok := os.LookupEnv("WANDB_API_KEY"); ok {
			c.Training.WandbAPIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeInference() {
	c.Inference.PretrainedModel = strings.TrimSpace(c.Inference.PretrainedModel)
	c.Inference.ModelPath = strings.TrimSpace(c.Inference.ModelPath)
	if c.Inference.MaxSeqLength <= 0 {
		c.Inference.MaxSeqLength = defaultInferMaxSeqLength
	}
	if c.Inference.Step <= 0 {
		c.Inference.Step = defaultInferStep
	}
	if c.Inference.Margin < 0 {
		c.Inference.Margin = defaultInferMargin
	}
	if c.Inference.BatchSize <= 0 {
		c.Inference.BatchSize = defaultInferBatchSize
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = defaultInferTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
