package config

const (
	defaultStagingDir         = "~/.local/share/nemoctl/staging"
	defaultLogDir             = "~/.local/share/nemoctl/logs"
	defaultDataDir            = "~/.local/share/nemoctl/data"
	defaultNGCInstance        = "dgx1v.32g.1.norm"
	defaultNGCImage           = "nvcr.io/nvidia/pytorch:21.03-py3"
	defaultNGCResultPath      = "/results"
	defaultNGCSubmitTimeout   = 120
	defaultNGCQueryTimeout    = 60
	defaultNeMoRepoURL        = "https://github.com/NVIDIA/NeMo.git"
	defaultNeMoBranch         = "main"
	defaultNeMoCodeDir        = "/code"
	defaultNeMoTrainScript    = "examples/nlp/machine_translation/enc_dec_nmt.py"
	defaultNeMoInferScript    = "examples/nlp/token_classification/punctuate_capitalize_infer.py"
	defaultTrainingGPUs       = 1
	defaultTrainingOMPThreads = 1
	defaultRunNamePrefix      = "nmt"
	defaultSourceLanguage     = "en"
	defaultTargetLanguage     = "de"
	defaultInferMaxSeqLength  = 512
	defaultInferStep          = 126
	defaultInferMargin        = 16
	defaultInferBatchSize     = 128
	defaultInferTimeout       = 3600
	defaultPollInterval       = 30
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			DataDir:    defaultDataDir,
		},
		NGC: NGC{
			Instance:      defaultNGCInstance,
			Image:         defaultNGCImage,
			ResultPath:    defaultNGCResultPath,
			SubmitTimeout: defaultNGCSubmitTimeout,
			QueryTimeout:  defaultNGCQueryTimeout,
		},
		NeMo: NeMo{
			RepoURL:     defaultNeMoRepoURL,
			Branch:      defaultNeMoBranch,
			CodeDir:     defaultNeMoCodeDir,
			TrainScript: defaultNeMoTrainScript,
			InferScript: defaultNeMoInferScript,
		},
		Training: Training{
			GPUs:           defaultTrainingGPUs,
			OMPThreads:     defaultTrainingOMPThreads,
			RunNamePrefix:  defaultRunNamePrefix,
			SourceLanguage: defaultSourceLanguage,
			TargetLanguage: defaultTargetLanguage,
		},
		Inference: Inference{
			MaxSeqLength: defaultInferMaxSeqLength,
			Step:         defaultInferStep,
			Margin:       defaultInferMargin,
			BatchSize:    defaultInferBatchSize,
			Timeout:      defaultInferTimeout,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
