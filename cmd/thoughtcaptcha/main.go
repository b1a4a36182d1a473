package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/illia-shyn/thoughtcaptcha/internal/followup"
	"github.com/illia-shyn/thoughtcaptcha/internal/handler"
	appI18n "github.com/illia-shyn/thoughtcaptcha/internal/i18n"
	"github.com/illia-shyn/thoughtcaptcha/internal/llm"
	"github.com/illia-shyn/thoughtcaptcha/internal/model"
	"github.com/illia-shyn/thoughtcaptcha/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "thoughtcaptcha",
		Short: "Follow-up question backend for written assignments",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `thoughtcaptcha --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address (or set PORT)")
	f.String("database-url", "thoughtcaptcha.db", "SQLite path or postgres:// URL (or set DATABASE_URL)")
	f.String("llm-url", llm.DefaultBaseURL, "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for LLM (or set OPENROUTER_API_KEY); empty uses the fallback question")
	f.String("llm-model", llm.DefaultModel, "LLM model name")
	f.Duration("llm-timeout", llm.DefaultTimeout, "Timeout for one question generation call")
	f.Int("llm-max-tokens", llm.DefaultMaxTokens, "Maximum tokens in a generated question")
	f.Float64("llm-temperature", llm.DefaultTemperature, "Sampling temperature (0 requests greedy decoding)")
	f.String("llm-referer", "https://illia-shyn.github.io/ThoughtCaptcha-frontend/", "HTTP-Referer header sent to the LLM provider")
	f.String("llm-title", "ThoughtCaptcha", "X-Title header sent to the LLM provider")
	f.String("cors-origin", "*", "Comma-separated allowed origins (or set FRONTEND_ORIGIN_URL)")
	f.StringP("lang", "l", "en", "Default language for API messages (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export assignments, submissions and the system prompt as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("database-url", "thoughtcaptcha.db", "SQLite path or postgres:// URL (or set DATABASE_URL)")
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
// Besides THOUGHTCAPTCHA_* variables, the conventional hosting names
// DATABASE_URL, OPENROUTER_API_KEY and FRONTEND_ORIGIN_URL are honored.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("THOUGHTCAPTCHA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database-url", "THOUGHTCAPTCHA_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("llm-key", "THOUGHTCAPTCHA_LLM_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("cors-origin", "THOUGHTCAPTCHA_CORS_ORIGIN", "FRONTEND_ORIGIN_URL")

	v.SetConfigName("thoughtcaptcha")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/thoughtcaptcha")
	v.AddConfigPath("/etc/thoughtcaptcha")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// listenAddr returns the configured address. A bare PORT variable applies
// only when addr was not set explicitly.
func listenAddr(cmd *cobra.Command, v *viper.Viper) string {
	addr := v.GetString("addr")
	if port := os.Getenv("PORT"); port != "" && !cmd.Flags().Changed("addr") && os.Getenv("THOUGHTCAPTCHA_ADDR") == "" {
		addr = ":" + port
	}
	return addr
}

// splitOrigins parses a comma-separated origin list.
func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func newRouter(h *handler.Handler, cfg model.ServerConfig) chi.Router {
	wildcard := len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*"

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "Authorization"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}))
	r.Use(appI18n.Middleware(cfg.Lang))
	h.Routes(r)
	return r
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(v.GetString("database-url"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Make sure the system prompt row exists before the first request.
	if _, err := db.SystemPrompt(ctx); err != nil {
		return fmt.Errorf("initialize system prompt: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient := llm.New(llm.Config{
		BaseURL:     v.GetString("llm-url"),
		APIKey:      v.GetString("llm-key"),
		Model:       v.GetString("llm-model"),
		Timeout:     v.GetDuration("llm-timeout"),
		MaxTokens:   v.GetInt("llm-max-tokens"),
		Temperature: float32(v.GetFloat64("llm-temperature")),
		Referer:     v.GetString("llm-referer"),
		Title:       v.GetString("llm-title"),
	})
	if v.GetString("llm-key") == "" {
		slog.Warn("LLM API key not set, every generated question will be the fallback")
	}

	cfg := model.ServerConfig{
		Lang:        lang,
		CORSOrigins: splitOrigins(v.GetString("cors-origin")),
	}
	h := handler.New(db, followup.New(db, llmClient), cfg)

	addr := listenAddr(cmd, v)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(h, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server",
		"addr", addr,
		"database", string(db.Dialect()),
		"model", llmClient.Model(),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"cors_origins", cfg.CORSOrigins,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("database-url"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported data",
		"assignments", export.NumAssignments,
		"submissions", export.NumSubmissions)
	return nil
}
