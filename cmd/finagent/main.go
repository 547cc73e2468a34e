package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finagent/internal/agent"
	"finagent/internal/cli"
	"finagent/internal/config"
	"finagent/internal/eval"
	"finagent/internal/llm/openai"
	"finagent/internal/logger"
	"finagent/internal/marketdata"
	"finagent/internal/mcp"
	"finagent/internal/tool"
	"finagent/internal/tool/builtin"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	apiBaseURL  string
	apiKey      string
	model       string
	temperature float32
	maxIters    int
	verbose     bool
	noColor     bool
	jsonOutput  bool

	datasetPath   string
	judgeModel    string
	passThreshold float64
	concurrency   int
	stopOnError   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finagent",
		Short: "Financial analysis agent",
		Long:  "An LLM-driven agent for financial queries with built-in market data tools and an evaluation harness",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-base-url", os.Getenv("OPENAI_API_BASE_URL"), "OpenAI API base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "OpenAI API key (defaults to OPENAI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Model to use")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output (debug mode)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit events as JSON lines")

	chatCmd := &cobra.Command{
		Use:   "chat [query]",
		Short: "Ask the agent a financial question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runChat,
	}
	chatCmd.Flags().Float32Var(&temperature, "temperature", 0.7, "Sampling temperature")
	chatCmd.Flags().IntVar(&maxIters, "max-iterations", 0, "Maximum reasoning iterations (0 = config default)")

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Run an evaluation dataset against the agent",
		RunE:  runEval,
	}
	evalCmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to the CSV test dataset (required)")
	evalCmd.Flags().StringVar(&judgeModel, "judge-model", "", "Model for the faithfulness judge")
	evalCmd.Flags().Float64Var(&passThreshold, "pass-threshold", 0, "Overall score needed to pass (0 = config default)")
	evalCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Test cases evaluated in parallel (0 = config default)")
	evalCmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Abort the run at the first errored case")
	evalCmd.MarkFlagRequired("dataset")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(evalCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file with command-line overrides
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadWithDefaults()
	}
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiBaseURL != "" {
		cfg.LLM.BaseURL = apiBaseURL
	}
	if model != "" {
		cfg.LLM.Model = model
	}

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required (set OPENAI_API_KEY or use --api-key)")
	}

	return cfg, nil
}

func newLogger() *logger.Logger {
	level := logger.LevelInfo
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.NewLogger(os.Stderr, level)
	if noColor {
		log.SetColorMode(false)
	}
	return log
}

// setupRegistry registers the built-in financial tools and any configured
// MCP servers. The returned manager is nil when no servers are configured.
func setupRegistry(ctx context.Context, cfg *config.Config, log *logger.Logger) (*tool.Registry, *mcp.Manager, error) {
	registry := tool.NewRegistry()

	provider := marketdata.NewYahooProvider()
	if err := builtin.RegisterAll(registry, provider); err != nil {
		return nil, nil, fmt.Errorf("failed to register built-in tools: %w", err)
	}
	log.Debug("Registered %d built-in tools", len(registry.List()))

	if len(cfg.MCP.Servers) == 0 {
		return registry, nil, nil
	}

	manager := mcp.NewManager(registry)
	if err := manager.Initialize(ctx, cfg.MCP); err != nil {
		if manager.ServerCount() == 0 {
			return nil, nil, err
		}
		// Partial failure: keep going with the servers that came up
		log.Error("%v", err)
	}
	log.Debug("MCP servers active: %v", manager.ListServers())

	return registry, manager, nil
}

// signalContext cancels on the first SIGINT/SIGTERM so in-flight tool
// calls can finish and the turn can end as cancelled.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger()
	ctx, stop := signalContext()
	defer stop()

	registry, manager, err := setupRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	if manager != nil {
		defer manager.Close()
	}

	llmClient := openai.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	log.Debug("LLM client ready (provider: %s, model: %s)", llmClient.Provider(), llmClient.Model())

	engine := agent.NewEngine("finagent", llmClient, registry, &agent.Config{
		Temperature:   cfg.Agent.Temperature,
		MaxTokens:     cfg.Agent.MaxTokens,
		MaxIterations: cfg.Agent.MaxIterations,
	})

	writer := cli.NewStreamingWriter(os.Stdout)
	writer.SetColorMode(!noColor)
	writer.SetVerbose(verbose)
	renderer := cli.NewTurnRenderer(writer)
	renderer.SetJSONMode(jsonOutput)

	input := &agent.Input{
		Query:       args[0],
		Temperature: temperature,
	}
	if maxIters > 0 {
		input.MaxIterations = maxIters
	}
	if verbose {
		input.Logger = log
	}

	result, err := engine.RunStream(ctx, input, renderer.Sink())
	if err != nil {
		return fmt.Errorf("agent turn failed: %w", err)
	}

	if result.Termination == agent.TerminationCancelled {
		os.Exit(130)
	}
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger()
	ctx, stop := signalContext()
	defer stop()

	cases, err := eval.LoadCSVFile(datasetPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	registry, manager, err := setupRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	if manager != nil {
		defer manager.Close()
	}

	llmClient := openai.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)

	jm := cfg.Judge.Model
	if judgeModel != "" {
		jm = judgeModel
	}
	if jm == "" {
		jm = cfg.LLM.Model
	}
	judgeClient := openai.NewClient(cfg.LLM.APIKey, jm, cfg.LLM.BaseURL)

	engine := agent.NewEngine("finagent-eval", llmClient, registry, &agent.Config{
		Temperature:   cfg.Agent.Temperature,
		MaxTokens:     cfg.Agent.MaxTokens,
		MaxIterations: cfg.Agent.MaxIterations,
	})

	runnerCfg := eval.RunnerConfig{
		PassThreshold: cfg.Eval.PassThreshold,
		CaseTimeout:   cfg.Eval.CaseTimeout(),
		Concurrency:   cfg.Eval.Concurrency,
		StopOnError:   cfg.Eval.StopOnError,
	}
	if passThreshold > 0 {
		runnerCfg.PassThreshold = passThreshold
	}
	if concurrency > 0 {
		runnerCfg.Concurrency = concurrency
	}
	if stopOnError {
		runnerCfg.StopOnError = true
	}

	runner := eval.NewRunner(engine, eval.NewJudge(judgeClient), registry, runnerCfg, log)

	writer := cli.NewStreamingWriter(os.Stdout)
	writer.SetColorMode(!noColor)
	writer.SetVerbose(verbose)
	renderer := cli.NewEvalRenderer(writer)
	renderer.SetJSONMode(jsonOutput)

	summary, err := runner.Run(ctx, cases, renderer.Sink())
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	// Non-zero exit when any case failed or errored, for CI use
	if summary.Failed > 0 || summary.Errored > 0 {
		os.Exit(1)
	}
	return nil
}
