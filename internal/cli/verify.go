package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/pmordasov/veracity/internal/agent"
	"github.com/pmordasov/veracity/internal/cache"
	"github.com/pmordasov/veracity/internal/llm"
	"github.com/pmordasov/veracity/internal/model"
	"github.com/pmordasov/veracity/internal/pipeline"
	"github.com/pmordasov/veracity/internal/search"
	"github.com/pmordasov/veracity/internal/validate"
	"github.com/pmordasov/veracity/internal/worker"
)

var (
	providerName  string
	geminiModel   string
	invokeTimeout time.Duration

	maxWorkers   int
	batchTimeout time.Duration
	searchLimit  int64
	noSearch     bool
	noValidate   bool

	outJSON    string
	outMD      string
	userAgent  string
	httpProxy  string
	httpsProxy string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <report-file|url|->",
	Short: "Verify every claim in a report",
	Long: `Verify reads a report from a file, a URL, or stdin ("-"), extracts its
checkable claims, and runs each one through evidence gathering, an
adversarial debate, and arbitration.

Credentials come from the environment:
  Gemini:       GEMINI_API_KEY
  Azure OpenAI: AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY,
                DEPLOYMENT_NAME, API_VERSION

Example:
  veracity verify report.txt
  veracity verify https://example.com/article --md verdicts.md
  cat report.txt | veracity verify - --provider azure`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&providerName, "provider", "gemini", "model provider (gemini, azure)")
	verifyCmd.Flags().StringVar(&geminiModel, "model", "gemini-2.5-flash", "Gemini model name")
	verifyCmd.Flags().DurationVar(&invokeTimeout, "invoke-timeout", 30*time.Second, "timeout for a single model call")

	verifyCmd.Flags().IntVar(&maxWorkers, "workers", 5, "max claims verified concurrently")
	verifyCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 5*time.Minute, "overall batch deadline")
	verifyCmd.Flags().Int64Var(&searchLimit, "search-concurrency", 4, "max in-flight web searches process-wide")
	verifyCmd.Flags().BoolVar(&noSearch, "no-search", false, "skip web evidence gathering")
	verifyCmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip source accessibility checks")

	verifyCmd.Flags().StringVar(&outJSON, "json", "verdicts.json", "output JSON path")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	verifyCmd.Flags().StringVar(&userAgent, "ua", "Veracity/0.1 (+https://github.com/pmordasov/veracity)", "HTTP User-Agent")
	verifyCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "proxy for HTTP requests")
	verifyCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "proxy for HTTPS requests")
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	report, err := loadReport(ctx, args[0], cfg)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	gateway := llm.NewGateway(cfg.Provider, logger)
	agents, pool := buildAgents(gateway, cfg, logger)
	if pool != nil {
		defer pool.Shutdown()
	}

	var validator *validate.Validator
	if cfg.Validation.Enabled {
		validator = validate.NewValidator(cfg.Validation.Timeout, cfg.Concurrency.ValidationWorkers,
			&cfg.Authority, cfg.Search.UserAgent, cfg.Search.HTTPProxy, cfg.Search.HTTPSProxy)
	}

	verifier := pipeline.NewVerifier(agents, validator, cfg.Validation.MaxURLs, logger)
	processor := pipeline.NewProcessor(verifier, cfg.Concurrency, logger)

	fmt.Fprintf(os.Stderr, "Extracting claims...\n")
	claims, err := agents.ExtractClaims(ctx, report)
	if err != nil {
		return fmt.Errorf("extract claims: %w", err)
	}
	if len(claims) == 0 {
		return fmt.Errorf("no checkable claims found in report")
	}
	fmt.Fprintf(os.Stderr, "Verifying %d claims...\n", len(claims))

	results := processor.Run(ctx, claims, report, func(completed, total int, res model.ClaimAnalysis) {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", completed, total, shorten(res.Claim))
	})
	if len(results) < len(claims) {
		fmt.Fprintf(os.Stderr, "Batch deadline reached: %d of %d claims completed\n", len(results), len(claims))
	}

	renderer := pipeline.NewRenderer()
	if cfg.Output.JSONPath != "" {
		if err := renderer.RenderJSON(results, cfg.Output.JSONPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", cfg.Output.JSONPath)
		}
	}
	if cfg.Output.MDPath != "" {
		if err := renderer.RenderMarkdown(results, cfg.Output.MDPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote Markdown: %s\n", cfg.Output.MDPath)
		}
	}
	renderer.RenderSummary(results, os.Stderr)

	return nil
}

// buildConfig merges defaults, flags, and environment credentials
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	cfg.Provider.InvokeTimeout = invokeTimeout
	cfg.Concurrency.MaxWorkers = maxWorkers
	cfg.Concurrency.BatchTimeout = batchTimeout
	cfg.Search.MaxConcurrent = searchLimit
	cfg.Search.UserAgent = userAgent
	cfg.Search.HTTPProxy = httpProxy
	cfg.Search.HTTPSProxy = httpsProxy
	cfg.Validation.Enabled = !noValidate
	cfg.Output.JSONPath = outJSON
	cfg.Output.MDPath = outMD
	cfg.Output.Verbose = verbose

	switch model.Provider(providerName) {
	case model.ProviderGemini:
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		cfg.Provider.Name = model.ProviderGemini
		cfg.Provider.Gemini = &model.GeminiConfig{APIKey: apiKey, Model: geminiModel}
		cfg.Provider.Azure = nil
	case model.ProviderAzure:
		azure := &model.AzureConfig{
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Deployment: os.Getenv("DEPLOYMENT_NAME"),
			APIVersion: os.Getenv("API_VERSION"),
		}
		cfg.Provider.Name = model.ProviderAzure
		cfg.Provider.Azure = azure
		cfg.Provider.Gemini = nil
		if err := azure.Validate(); err != nil {
			return nil, fmt.Errorf("azure credentials: %w (set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, DEPLOYMENT_NAME, API_VERSION)", err)
		}
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: gemini, azure)", providerName)
	}

	return cfg, nil
}

// buildAgents assembles the agent set around one gateway. The returned
// pool is nil when web search is disabled; otherwise it is started and
// must be shut down by the caller.
func buildAgents(gateway *llm.Gateway, cfg *model.Config, logger *slog.Logger) (*agent.Agents, *worker.Pool) {
	if noSearch {
		return agent.New(gateway, nil, logger), nil
	}

	pool := worker.NewPool(cfg.Concurrency.SearchWorkers)
	pool.Start()

	limiter := worker.NewLimiter(cfg.Search.RatePerHost, 2)
	backends := search.DefaultBackends(cfg.Search, limiter)
	sem := semaphore.NewWeighted(cfg.Search.MaxConcurrent)

	var store cache.Cache
	if cfg.Search.CacheTTL > 0 {
		store = cache.NewMemoryCache(cfg.Search.CacheTTL, cfg.Search.CacheTTL)
	}

	aggregator := search.NewAggregator(gateway, backends, pool, sem, store, cfg.Search, logger)
	return agent.New(gateway, aggregator, logger), pool
}

// loadReport reads the report text from a file path, URL, or stdin
func loadReport(ctx context.Context, src string, cfg *model.Config) (string, error) {
	if src == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		fetcher := pipeline.NewFetcher(30*time.Second, cfg.Search.UserAgent, 2<<20)
		return fetcher.Fetch(ctx, src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func shorten(s string) string {
	if len(s) > 70 {
		return s[:70] + "..."
	}
	return s
}
