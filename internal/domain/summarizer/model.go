package summarizer

import (
	"log/slog"

	"github.com/yanqian/longtext-summarizer/pkg/metrics"
)

const (
	DefaultMaxWords            = 20000
	DefaultMaxChunkChars       = 5000
	DefaultChunkOverlap        = 350
	DefaultMaxCombineChars     = 10000
	DefaultMapConcurrency      = 4
	DefaultReduceConcurrency   = 2
	DefaultProvider            = "groq"
	DefaultModel               = "llama3-70b-8192"
	DefaultMaxOutputTokens     = 1024
	DefaultContextWindowTokens = 8192
)

// Config configures the map-reduce pipeline.
type Config struct {
	MaxWords             int
	MaxChunkChars        int
	ChunkOverlap         int
	MaxCombineChars      int
	Separators           []string
	MapConcurrency       int
	ReduceConcurrency    int
	ContinueOnChunkError bool
	MapPrompt            string
	ReducePrompt         string
	Provider             string
	Model                string
	// ProviderModels names the model used when a request switches provider
	// without choosing one.
	ProviderModels       map[string]string
	Temperature          float32
	MaxOutputTokens      int
	ContextWindowTokens  int
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		MaxWords:            DefaultMaxWords,
		MaxChunkChars:       DefaultMaxChunkChars,
		ChunkOverlap:        DefaultChunkOverlap,
		MaxCombineChars:     DefaultMaxCombineChars,
		Separators:          DefaultSeparators(),
		MapConcurrency:      DefaultMapConcurrency,
		ReduceConcurrency:   DefaultReduceConcurrency,
		MapPrompt:           DefaultMapPrompt,
		ReducePrompt:        DefaultReducePrompt,
		Provider:            DefaultProvider,
		Model:               DefaultModel,
		MaxOutputTokens:     DefaultMaxOutputTokens,
		ContextWindowTokens: DefaultContextWindowTokens,
	}
}

// Credential authorizes backend calls for a single run.
type Credential string

// String redacts the secret so it cannot leak through fmt.
func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[REDACTED]"
}

func (c Credential) GoString() string {
	return c.String()
}

// LogValue redacts the secret in slog output.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// Request represents one document to summarize.
type Request struct {
	Text       string     `json:"text"`
	Provider   string     `json:"provider,omitempty"`
	Model      string     `json:"model,omitempty"`
	Credential Credential `json:"-"`
}

// Response is the final summary of a run.
type Response struct {
	Summary      string              `json:"summary"`
	Provider     string              `json:"provider"`
	Model        string              `json:"model"`
	WordCount    int                 `json:"wordCount"`
	Chunks       int                 `json:"chunks"`
	MapCalls     int                 `json:"mapCalls"`
	ReduceCalls  int                 `json:"reduceCalls"`
	ReduceRounds int                 `json:"reduceRounds"`
	DurationMs   int64               `json:"durationMs,omitempty"`
	TokenUsage   *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// Chunk is a contiguous span of the document. Start and End are rune offsets.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Summary is produced from one chunk (Round 0) or from a batch of summaries.
type Summary struct {
	Index       int
	Text        string
	Sources     int
	Round       int
	Placeholder bool
}
