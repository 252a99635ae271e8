package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/config"
	"github.com/yanqian/longtext-summarizer/internal/infra/llm"
	"github.com/yanqian/longtext-summarizer/internal/infra/source"
	"github.com/yanqian/longtext-summarizer/internal/infra/tokens"
	"github.com/yanqian/longtext-summarizer/pkg/logger"
)

const (
	outputText = "text"
	outputJSON = "json"

	dryRunCredential = "dry-run"
)

type options struct {
	configPath string
	provider   string
	model      string
	apiKey     string
	output     string
	logLevel   string
	dryRun     bool
}

// providerKeyEnv lists the conventional key variable of each remote provider.
var providerKeyEnv = map[string]string{
	llm.ProviderGroq:      "GROQ_API_KEY",
	llm.ProviderChatGPT:   "OPENAI_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "summarize [flags] <file | - | s3://bucket/key>",
		Short: "Summarize a long plain text document",
		Long: "Splits a plain text document into overlapping chunks, summarizes each chunk with an LLM " +
			"and combines the partial summaries into one.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd, opts, args[0], getenv)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			}
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to the YAML config (defaults to CONFIG_PATH or configs/config.yaml)")
	flags.StringVar(&opts.provider, "provider", "", "LLM provider: groq, chatgpt, openai, anthropic or extractive")
	flags.StringVar(&opts.model, "model", "", "model identifier for the chosen provider")
	flags.StringVar(&opts.apiKey, "api-key", "", "provider API key (defaults to LLM_API_KEY or the provider's variable)")
	flags.StringVarP(&opts.output, "output", "o", outputText, "output format: text or json")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "summarize offline with the extractive backend")
	return cmd
}

func run(cmd *cobra.Command, opts *options, ref string, getenv func(string) string) error {
	if opts.output != outputText && opts.output != outputJSON {
		return fmt.Errorf("unknown output format %q", opts.output)
	}
	level := opts.logLevel
	if level == "" {
		level = getenv("LOG_LEVEL")
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level)

	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	provider := strings.ToLower(strings.TrimSpace(opts.provider))
	if provider == "" {
		provider = strings.ToLower(cfg.LLM.Provider)
	}
	var credential summarizer.Credential
	var counter summarizer.TokenCounter
	if opts.dryRun {
		provider = llm.ProviderExtractive
		credential = dryRunCredential
		counter = tokens.Approximate{}
	} else {
		credential = resolveCredential(opts.apiKey, provider, getenv)
		counter = tokens.NewCounter(cfg.LLM.Encoding, log)
	}

	var store source.ObjectStore
	if s3 := cfg.Source.S3; strings.TrimSpace(s3.Endpoint) != "" {
		s3Store, err := source.NewS3Store(s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.Region, s3.UseSSL, log)
		if err != nil {
			return fmt.Errorf("init s3 source: %w", err)
		}
		store = s3Store
	}
	text, err := source.NewLoader(cmd.InOrStdin(), store, cfg.Source.MaxBytes).Load(cmd.Context(), ref)
	if err != nil {
		return err
	}

	backends, err := llm.NewBackends(cfg, log)
	if err != nil {
		return err
	}
	svc, err := summarizer.NewService(llm.SummaryConfig(cfg), backends, counter, nil, log)
	if err != nil {
		return err
	}
	resp, err := svc.Summarize(cmd.Context(), summarizer.Request{
		Text:       text,
		Provider:   provider,
		Model:      opts.model,
		Credential: credential,
	})
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), opts.output, resp)
}

// resolveCredential prefers the flag, then LLM_API_KEY, then the provider's own variable.
func resolveCredential(flagValue, provider string, getenv func(string) string) summarizer.Credential {
	if v := strings.TrimSpace(flagValue); v != "" {
		return summarizer.Credential(v)
	}
	if v := strings.TrimSpace(getenv("LLM_API_KEY")); v != "" {
		return summarizer.Credential(v)
	}
	if name, ok := providerKeyEnv[provider]; ok {
		return summarizer.Credential(strings.TrimSpace(getenv(name)))
	}
	return ""
}

func writeResponse(w io.Writer, format string, resp summarizer.Response) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	_, err := fmt.Fprintln(w, resp.Summary)
	return err
}
