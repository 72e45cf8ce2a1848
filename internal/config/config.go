package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	DataDir    string `toml:"data_dir"`
}

// NGC contains configuration for the NGC batch cluster CLI.
type NGC struct {
	Binary        string   `toml:"binary"`
	Org           string   `toml:"org"`
	Team          string   `toml:"team"`
	Instance      string   `toml:"instance"`
	Image         string   `toml:"image"`
	ResultPath    string   `toml:"result_path"`
	DatasetMounts []string `toml:"dataset_mounts"`
	SubmitTimeout int      `toml:"submit_timeout"`
	QueryTimeout  int      `toml:"query_timeout"`
}

// NeMo contains configuration for the NeMo checkout performed inside submitted jobs.
type NeMo struct {
	RepoURL      string `toml:"repo_url"`
	Branch       string `toml:"branch"`
	CodeDir      string `toml:"code_dir"`
	PythonBinary string `toml:"python_binary"`
	TrainScript  string `toml:"train_script"`
	InferScript  string `toml:"infer_script"`
}

// Training contains defaults for remote training submissions.
type Training struct {
	GPUs           int    `toml:"gpus"`
	OMPThreads     int    `toml:"omp_threads"`
	RunNamePrefix  string `toml:"run_name_prefix"`
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	WandbAPIKey    string `toml:"wandb_api_key"`
}

// Inference contains defaults for local punctuation/capitalization inference.
type Inference struct {
	PretrainedModel string `toml:"pretrained_model"`
	ModelPath       string `toml:"model_path"`
	MaxSeqLength    int    `toml:"max_seq_length"`
	Step            int    `toml:"step"`
	Margin          int    `toml:"margin"`
	BatchSize       int    `toml:"batch_size"`
	Timeout         int    `toml:"timeout"`
}

// Workflow contains polling intervals for job tracking.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for nemoctl.
//
// Configuration sections by subsystem:
//   - Paths: staging, log, and data directories
//   - NGC: batch cluster CLI settings (instance, image, mounts)
//   - NeMo: framework checkout and entry-point scripts
//   - Training: remote submission defaults
//   - Inference: local punctuation/capitalization defaults
//   - Workflow: job tracker polling intervals
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	NGC       NGC       `toml:"ngc"`
	NeMo      NeMo      `toml:"nemo"`
	Training  Training  `toml:"training"`
	Inference Inference `toml:"inference"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/nemoctl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/nemoctl/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("nemoctl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for launcher operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.DataDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// NGCBinary returns the NGC CLI executable name.
func (c *Config) NGCBinary() string {
	if strings.TrimSpace(c.NGC.Binary) == "" {
		return "ngc"
	}
	return c.NGC.Binary
}

// PythonBinary returns the python executable used for local inference.
func (c *Config) PythonBinary() string {
	if strings.TrimSpace(c.NeMo.PythonBinary) == "" {
		return "python"
	}
	return c.NeMo.PythonBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
