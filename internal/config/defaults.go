package config

const (
	defaultDataDir      = "~/.local/share/factstream"
	defaultReferenceDir = "~/.local/share/factstream/references"
	defaultLogDir       = "~/.local/share/factstream/logs"
	defaultAPIBind      = "127.0.0.1:8727"

	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultWhisperModel    = "whisper-1"
	defaultClassifierModel = "gpt-5-nano"
	defaultVerifierModel   = "gpt-5.2"
	defaultEmbeddingModel  = "text-embedding-3-small"
	defaultTimeoutSeconds  = 60
	defaultLanguage        = "ko"

	defaultChunkSeconds          = 10
	defaultURLRefreshChunks      = 20
	defaultResolveTimeoutSeconds = 30

	defaultChunkChars     = 800
	defaultOverlapChars   = 200
	defaultEmbedBatchSize = 100
	defaultScoreFloor     = 0.2
	defaultTopK           = 3

	defaultQueueDepth         = 4
	defaultTranscribeAttempts = 3
	defaultRetryBaseMillis    = 1000
	defaultVerifyConcurrency  = 2

	defaultLogFormat = "text"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ReferenceDir: defaultReferenceDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		OpenAI: OpenAI{
			BaseURL:         defaultOpenAIBaseURL,
			WhisperModel:    defaultWhisperModel,
			ClassifierModel: defaultClassifierModel,
			VerifierModel:   defaultVerifierModel,
			EmbeddingModel:  defaultEmbeddingModel,
			TimeoutSeconds:  defaultTimeoutSeconds,
			Language:        defaultLanguage,
		},
		Capture: Capture{
			ChunkSeconds:          defaultChunkSeconds,
			FFmpegBinary:          "ffmpeg",
			YtDlpBinary:           "yt-dlp",
			URLRefreshChunks:      defaultURLRefreshChunks,
			ResolveTimeoutSeconds: defaultResolveTimeoutSeconds,
		},
		Corpus: Corpus{
			ChunkChars:     defaultChunkChars,
			OverlapChars:   defaultOverlapChars,
			EmbedBatchSize: defaultEmbedBatchSize,
			ScoreFloor:     defaultScoreFloor,
			TopK:           defaultTopK,
		},
		Pipeline: Pipeline{
			QueueDepth:         defaultQueueDepth,
			TranscribeAttempts: defaultTranscribeAttempts,
			RetryBaseMillis:    defaultRetryBaseMillis,
			VerifyConcurrency:  defaultVerifyConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
