package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quizzard/quizzard/internal/assist"
	"github.com/quizzard/quizzard/internal/config"
	"github.com/quizzard/quizzard/internal/input"
	"github.com/quizzard/quizzard/internal/ocr"
	"github.com/quizzard/quizzard/internal/pipeline"
	"github.com/quizzard/quizzard/internal/question"
	"github.com/quizzard/quizzard/internal/resolve"
	"github.com/quizzard/quizzard/internal/screen"
	"github.com/quizzard/quizzard/internal/server"
	"github.com/quizzard/quizzard/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizzard",
		Short: "On-screen quiz solver: OCR, question matching, automated clicking",
	}

	serve := serveCmd()
	root.AddCommand(serve, solveCmd(), importCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizzard --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "quizzard.db", "SQLite database path")
	f.StringP("questions", "q", "questions.json", "Built-in question set JSON file")
	f.String("ocr-binary", "tesseract", "Tesseract binary path")
	f.String("ocr-lang", "eng", "Tesseract language")
	f.Float64("fuzzy-threshold", question.DefaultFuzzyThreshold, "Minimum similarity for a fuzzy question match")
	f.Float64("unknown-dedup", question.DefaultUnknownDedupSim, "Similarity above which queued unknowns are deduplicated")
	f.Float64("zone-threshold", resolve.DefaultZoneThreshold, "Zone-mode answer similarity floor")
	f.Float64("block-score", resolve.DefaultBlockScore, "Flat-mode first-pass acceptance score")
	f.Float64("block-sim", resolve.DefaultBlockSim, "Flat-mode first-pass per-block similarity floor")
	f.Float64("flat-fuzzy", resolve.DefaultFuzzyThreshold, "Flat-mode fuzzy fallback similarity floor")
	f.Float64("length-guard", resolve.DefaultLengthGuard, "Flat-mode minimum block/answer length ratio")
	f.Float64("capture-x", 0, "Flat-mode capture region X (pixels)")
	f.Float64("capture-y", 0, "Flat-mode capture region Y (pixels)")
	f.Float64("capture-w", 1920, "Flat-mode capture region width (pixels)")
	f.Float64("capture-h", 1080, "Flat-mode capture region height (pixels)")
	f.Float64("cooldown", 2, "Minimum seconds between clicks")
	f.Bool("dry-run", false, "Resolve answers but never click")
	f.String("assist", "", "LLM assist provider (openai, claude; empty disables)")
	f.String("assist-url", "", "Assist API base URL override")
	f.String("assist-key", "", "Assist API key (or QUIZZARD_ASSIST_KEY)")
	f.String("assist-model", "", "Assist model name override")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control server and the continuous capture loop",
		RunE:  runServe,
	}
	addPipelineFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8090", "HTTP listen address")
	f.Float64("capture-rate", 1, "Continuous capture rate in Hz")
	f.Bool("auto", false, "Start with automatic clicking enabled")
	return cmd
}

func solveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run a single capture-match-click cycle and print the outcome",
		RunE:  runSolve,
	}
	addPipelineFlags(cmd)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a question JSON file into the user question set",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "quizzard.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the user question set as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "quizzard.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZZARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizzard")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizzard")
	v.AddConfigPath("/etc/quizzard")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// app bundles everything a solve cycle needs.
type app struct {
	store    *store.Store
	db       *question.Database
	runner   *pipeline.Runner
	provider assist.Provider
	capturer screen.Capturer
}

func (a *app) Close() {
	a.capturer.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("close store", "error", err)
	}
}

func buildApp(cfg *config.Config, autoEnabled bool) (*app, error) {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var builtin []question.QuestionAnswer
	if cfg.QuestionsPath != "" {
		builtin, err = store.LoadQuestionFile(cfg.QuestionsPath)
		if err != nil {
			slog.Warn("built-in question set unavailable", "path", cfg.QuestionsPath, "error", err)
		}
	}

	db := question.New(builtin, question.Config{
		FuzzyThreshold:  cfg.FuzzyThreshold,
		UnknownDedupSim: cfg.UnknownDedupSim,
	})
	user, err := st.ListUserQuestions()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load user questions: %w", err)
	}
	db.LoadUserQuestions(user)
	unknowns, err := st.ListUnknowns()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load unknowns: %w", err)
	}
	db.LoadUnknowns(unknowns)

	resolver := resolve.New(resolve.Config{
		ZoneThreshold:  cfg.ZoneThreshold,
		BlockScore:     cfg.BlockScore,
		BlockSim:       cfg.BlockSim,
		FuzzyThreshold: cfg.FlatFuzzy,
		LengthGuard:    cfg.LengthGuard,
	})

	capturer := screen.New()
	runner := pipeline.NewRunner(
		capturer,
		ocr.NewTesseract(cfg.OCRBinary, cfg.OCRLanguage),
		db,
		resolver,
		input.New(),
		pipeline.NewGate(cfg.Cooldown, autoEnabled),
		pipeline.NewHistory(100, 16),
		st,
		pipeline.Config{CaptureRect: cfg.CaptureRect, DryRun: cfg.DryRun},
	)

	if active, err := st.ActiveLayout(); err != nil {
		slog.Warn("load active layout", "error", err)
	} else if active != nil {
		runner.SetLayout(active)
		slog.Info("layout active", "name", active.Name, "zones", len(active.Answers))
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		capturer.Close()
		st.Close()
		return nil, err
	}

	return &app{store: st, db: db, runner: runner, provider: provider, capturer: capturer}, nil
}

func buildProvider(cfg *config.Config) (assist.Provider, error) {
	switch cfg.AssistProvider {
	case "":
		return nil, nil
	case "openai":
		return assist.NewResilient(assist.NewOpenAI(cfg.AssistBaseURL, cfg.AssistAPIKey, cfg.AssistModel)), nil
	case "claude":
		return assist.NewResilient(assist.NewClaude(cfg.AssistBaseURL, cfg.AssistAPIKey, cfg.AssistModel)), nil
	default:
		return nil, fmt.Errorf("unknown assist provider %q", cfg.AssistProvider)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := buildApp(cfg, cfg.AutoEnabled)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := pipeline.NewLoop(a.runner, screen.NewDiffer(0), cfg.CaptureRate)
	go loop.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.New(a.runner, a.db, a.store, a.provider).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", cfg.HTTPAddr,
			"capture_rate", cfg.CaptureRate,
			"auto", cfg.AutoEnabled,
			"dry_run", cfg.DryRun,
			"assist", cfg.AssistProvider,
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSolve(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg := config.FromViper(v)
	cfg.CaptureRate = 1 // unused in single-shot mode, but must validate
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The gate is always open for an explicit one-shot solve.
	a, err := buildApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.runner.Solve(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	st, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	n, err := st.ImportQuestionFile(args[0])
	if err != nil {
		return err
	}
	slog.Info("questions imported", "file", args[0], "count", n)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	st, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	out := v.GetString("output")
	if out == "-" {
		qs, err := st.ListUserQuestions()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(qs)
	}
	if err := st.ExportUserQuestions(out); err != nil {
		return err
	}
	slog.Info("questions exported", "file", out)
	return nil
}
