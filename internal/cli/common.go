package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/slant/internal/detect"
	"github.com/ppiankov/slant/internal/lexicon"
	applog "github.com/ppiankov/slant/internal/log"
	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/store"
)

const appName = "slant"

// registerDefaults teaches viper every config key so SLANT_* variables
// override keys the config file does not mention
func registerDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults("", tree)

	// Keys omitted from the marshalled defaults
	for _, key := range []string{"llm.api_key", "llm.base_url", "http.http_proxy", "http.https_proxy", "http.no_proxy"} {
		viper.SetDefault(key, "")
	}
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig merges defaults, the config file and the environment, then
// fills directory defaults and API keys
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Cache.DiskDir == "" {
		cfg.Cache.DiskDir = filepath.Join(xdg.CacheHome, appName)
	}
	if cfg.History.Dir == "" {
		cfg.History.Dir = filepath.Join(xdg.DataHome, appName)
	}
	if cfg.LLM.APIKey == "" && (cfg.LLM.Provider == "openai" || cfg.LLM.Provider == "") {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) *slog.Logger {
	logger := applog.New(os.Stderr, cfg.Output.Verbose)
	slog.SetDefault(logger)
	return logger
}

// newDetector builds the engine from the configured lexicon
func newDetector(cfg *model.Config) (*detect.Detector, error) {
	var (
		lex *lexicon.Store
		err error
	)
	if cfg.Lexicon.Path != "" {
		lex, err = lexicon.LoadFile(cfg.Lexicon.Path)
	} else {
		lex, err = lexicon.Default()
	}
	if err != nil {
		return nil, err
	}

	d, err := detect.New(lex, cfg.Detection)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}
	return d, nil
}

// httpFlags are the fetch options shared by scan and batch
type httpFlags struct {
	timeout     time.Duration
	userAgent   string
	maxBytes    int64
	insecureTLS bool
	noRobots    bool
	httpProxy   string
	httpsProxy  string
}

func (f *httpFlags) register(cmd *cobra.Command) {
	defaults := model.DefaultConfig().HTTP
	cmd.Flags().DurationVar(&f.timeout, "http-timeout", defaults.Timeout, "timeout per HTTP request")
	cmd.Flags().StringVar(&f.userAgent, "ua", defaults.UserAgent, "HTTP User-Agent")
	cmd.Flags().Int64Var(&f.maxBytes, "max-bytes", defaults.MaxBodyBytes, "max response bytes to read")
	cmd.Flags().BoolVar(&f.insecureTLS, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().BoolVar(&f.noRobots, "no-robots", false, "ignore robots.txt")
	cmd.Flags().StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func (f *httpFlags) apply(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("http-timeout") {
		cfg.HTTP.Timeout = f.timeout
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if flags.Changed("max-bytes") {
		cfg.HTTP.MaxBodyBytes = f.maxBytes
	}
	if flags.Changed("insecure") {
		cfg.HTTP.InsecureTLS = f.insecureTLS
	}
	if flags.Changed("no-robots") {
		cfg.HTTP.RespectRobots = !f.noRobots
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
}

// llmFlags enable the optional rewrite advisor
type llmFlags struct {
	enabled  bool
	provider string
	model    string
}

func (f *llmFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.enabled, "llm", false, "generate LLM rewrite advice (never affects scores)")
	cmd.Flags().StringVar(&f.provider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	cmd.Flags().StringVar(&f.model, "llm-model", "gpt-4o-mini", "LLM model name")
}

func (f *llmFlags) apply(cmd *cobra.Command, cfg *model.Config) error {
	if !f.enabled {
		cfg.LLM.Provider = ""
		return nil
	}
	if cmd.Flags().Changed("llm-provider") || cfg.LLM.Provider == "" {
		cfg.LLM.Provider = f.provider
	}
	if cmd.Flags().Changed("llm-model") || cfg.LLM.Model == "" {
		cfg.LLM.Model = f.model
	}

	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
	return nil
}

// openHistory opens the history store when dbDir is set or history is enabled
func openHistory(cfg *model.Config, dbDir string) (*store.History, error) {
	if dbDir == "" {
		if !cfg.History.Enabled {
			return nil, nil
		}
		dbDir = cfg.History.Dir
	}
	return store.Open(dbDir)
}
