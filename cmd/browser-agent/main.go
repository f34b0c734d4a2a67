// Package main provides the browser-agent CLI: it runs one browsing task
// against a live browser, printing progress lines and the final result.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imann24/ai-browser-agent/pkg/agent"
	"github.com/imann24/ai-browser-agent/pkg/browser"
	"github.com/imann24/ai-browser-agent/pkg/config"
	"github.com/imann24/ai-browser-agent/pkg/llm"
	"github.com/imann24/ai-browser-agent/pkg/llm/ollama"
	"github.com/imann24/ai-browser-agent/pkg/llm/openai"
	"github.com/imann24/ai-browser-agent/pkg/llm/tokenizer"
	"github.com/imann24/ai-browser-agent/pkg/types"
)

const version = "0.1.0"

type cliFlags struct {
	configFile    string
	task          string
	backend       string
	model         string
	baseURL       string
	apiKey        string
	screenshotDir string
	headed        bool
	timeout       time.Duration
	showVersion   bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		fmt.Printf("browser-agent v%s\n", version)
		return
	}

	if flags.task == "" {
		fmt.Fprintln(os.Stderr, "error: -task is required")
		flag.Usage()
		os.Exit(2)
	}

	code, err := run(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}
	flag.StringVar(&flags.configFile, "config", "", "path to YAML configuration file")
	flag.StringVar(&flags.task, "task", "", "task instruction to execute")
	flag.StringVar(&flags.backend, "backend", "", "LLM backend: openai or ollama")
	flag.StringVar(&flags.model, "model", "", "model name override")
	flag.StringVar(&flags.baseURL, "base-url", "", "LLM endpoint base URL override")
	flag.StringVar(&flags.apiKey, "api-key", "", "API key (openai backend)")
	flag.StringVar(&flags.screenshotDir, "screenshot-dir", "", "directory for checkpoint screenshots")
	flag.BoolVar(&flags.headed, "headed", false, "run the browser with a visible window")
	flag.DurationVar(&flags.timeout, "timeout", 0, "per-task wall-clock budget override")
	flag.BoolVar(&flags.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return flags
}

// run executes one task and returns the process exit code. The deferred
// session teardown must run before the process exits, so exit codes are
// returned rather than passed to os.Exit here.
func run(flags *cliFlags) (int, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return 1, err
	}
	applyOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return 1, err
	}

	whitelist, err := config.NewURLWhitelist(cfg.Browser.AllowedURLs)
	if err != nil {
		return 1, err
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return 1, err
	}

	writer, err := browser.NewScreenshotWriter(cfg.Screenshots.Dir)
	if err != nil {
		return 1, err
	}

	headless := cfg.Browser.Headless
	session := browser.NewSession(
		func() (browser.Driver, error) {
			return browser.NewPlaywrightDriver(headless)
		},
		browser.WithSettleDelay(cfg.Browser.SettleDelay),
		browser.WithScreenshotWriter(writer),
	)
	defer session.Close()

	// The session is the one long-lived resource; tear it down on
	// interrupt rather than leaking a browser process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\ninterrupted, closing browser session")
		session.Close()
		os.Exit(130)
	}()

	ag := agent.NewAgent(provider, session,
		agent.WithTimeout(cfg.Timeout),
		agent.WithWhitelist(whitelist),
		agent.WithTokenizer(tokenizer.NewTokenizer()),
	)

	callbacks := &types.TaskCallbacks{
		OnProgress: func(text string) {
			fmt.Printf("[progress] %s\n", text)
		},
		OnScreenshot: func(image []byte, description string) {
			fmt.Printf("[screenshot] %s (%d bytes)\n", description, len(image))
		},
	}

	result := ag.ExecuteResult(flags.task, callbacks)
	fmt.Println(result.Message)

	switch result.Reason {
	case agent.ReasonError, agent.ReasonNavigationFailure, agent.ReasonTimeout:
		return 1, nil
	}
	return 0, nil
}

func applyOverrides(cfg *config.Config, flags *cliFlags) {
	if flags.backend != "" {
		cfg.LLM.Backend = config.Backend(flags.backend)
	}
	if flags.model != "" {
		cfg.LLM.Model = flags.model
	}
	if flags.baseURL != "" {
		cfg.LLM.BaseURL = flags.baseURL
	}
	if flags.apiKey != "" {
		cfg.LLM.APIKey = flags.apiKey
	}
	if flags.screenshotDir != "" {
		cfg.Screenshots.Dir = flags.screenshotDir
	}
	if flags.headed {
		cfg.Browser.Headless = false
	}
	if flags.timeout > 0 {
		cfg.Timeout = flags.timeout
	}
}

// buildProvider constructs the configured query backend. Both backends
// sit behind the identical loop; only the transport differs.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Backend {
	case config.BackendOpenAI:
		opts := []openai.ProviderOption{
			openai.WithModel(cfg.LLM.Model),
			openai.WithJSONMode(),
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
		}
		return openai.NewProvider(cfg.LLM.APIKey, opts...)

	case config.BackendOllama:
		opts := []ollama.ProviderOption{
			ollama.WithModel(cfg.LLM.Model),
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(cfg.LLM.BaseURL))
		}
		return ollama.NewProvider(opts...), nil

	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.LLM.Backend)
	}
}
