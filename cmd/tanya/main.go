// Package main is the Tanya CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/cli"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/mcpserver"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/internal/watcher"
	"github.com/hyperjump/tanya/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tanya/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, and when neither file exists the built-in
// defaults are used. Returns the config and the path that was actually loaded
// (empty for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			if err := config.LoadDotEnv(".env"); err != nil {
				return nil, "", err
			}
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve", "server":
		runServe()
	case "ask":
		runAsk()
	case "index":
		runIndex()
	case "mcp":
		runMCP()
	case "version", "--version", "-v":
		fmt.Printf("tanya version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config, builds the logger and the session. Callers must call
// Components.Close.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolvedConfigPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("document", cfg.Document.Path),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, reloads, provider calls)")
	watch := fs.Bool("watch", false, "reload the document when it changes on disk (overrides watch.enabled)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	if cfg.Diagnostics.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warn("gops agent failed to start", zap.Error(err))
		} else {
			defer agent.Close()
		}
	}

	sess := components.Session
	// A document that fails to load is reported on the page; the server still starts.
	if err := sess.Load(context.Background()); err != nil {
		logger.Error("document load failed", zap.String("path", cfg.Document.Path), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch.Enabled || *watch {
		w := watcher.NewWatcher(
			cfg.Document.Path,
			func(path string) {
				if err := sess.Reload(ctx); err != nil {
					logger.Warn("reload failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithDebounce(cfg.Watch.Debounce),
			watcher.WithLogger(logger),
			watcher.WithOnRemove(func(path string) {
				logger.Warn("document removed; keeping the current index", zap.String("path", path))
			}),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(sess, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// printAskUsage prints ask subcommand usage.
func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: tanya ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  tanya ask What is Git?
  tanya ask --all "How do I create a branch?"      # list every retrieved chunk
  tanya ask --format json What is a commit?
`)
}

// buildQuery joins all positional args with spaces so questions work the same
// with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// askArgsReorder moves flags that appear after the question to the front so that
// flag.Parse sees them; the flag package stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	all := fs.Bool("all", false, "show every retrieved chunk instead of only the cited ones (overrides query.return_all_chunks)")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = query.top_k)")
	temperature := fs.Float64("temperature", -1, "sampling temperature (negative = model.temperature)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	preview := fs.Int("preview", 200, "characters of each source to show in text output (0 = full)")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(askArgsReorder(os.Args[2:]))

	question := buildQuery(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	sess := components.Session
	if err := sess.Load(ctx); err != nil {
		fmt.Printf("Failed to load document: %v\n", err)
		os.Exit(1)
	}

	req := sess.DefaultRequest(question)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "all" {
			req.ReturnAll = *all
		}
	})
	if *topK > 0 {
		req.TopK = *topK
	}
	if *temperature >= 0 {
		req.Temperature = *temperature
	}

	result, err := sess.Ask(ctx, req)
	if err != nil {
		fmt.Printf("Question failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteResult(os.Stdout, result, format, *preview); err != nil {
		fmt.Printf("Failed to write result: %v\n", err)
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	// A positional argument replaces document.path for this run.
	if fs.NArg() > 0 {
		abs, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fmt.Printf("Invalid path: %v\n", err)
			os.Exit(1)
		}
		cfg.Document.Path = abs
	}

	if err := components.Session.Load(context.Background()); err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, components.Session.Status(), format); err != nil {
		fmt.Printf("Failed to write status: %v\n", err)
		os.Exit(1)
	}
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (written to stderr)")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := components.Session
	if err := sess.Load(ctx); err != nil {
		logger.Fatal("document load failed", zap.Error(err))
	}
	if err := mcpserver.Run(ctx, mcpserver.NewServer(sess, version)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server stopped", zap.Error(err))
	}
}

func printUsage() {
	fmt.Println(`Tanya - Ask questions about a document

Usage:
  tanya <command> [flags]

Commands:
  serve     Start the web UI and HTTP API (--watch reloads on change)
  ask       Answer a question from the command line
  index     Load and index the document, then print its status
  mcp       Serve the document over the Model Context Protocol (stdio)
  version   Show version
  help      Show this help

Environment:
  OPENAI_API_KEY      credential for the openai providers (.env next to the config is loaded)
  TANYA_DOCUMENT      document path
  TANYA_EMBEDDING     embedding provider (openai, onnx, debug)
  TANYA_VECTOR_STORE  vector store (memory, faiss, debug)
  TANYA_MODEL         language model (openai, debug)

Examples:
  tanya serve --config ./config.yaml
  tanya ask What is Git?
  tanya index ./resources/progit.pdf
  tanya mcp`)
}

// Components holds what a command needs and owns their lifetime.
type Components struct {
	Session *session.Session
	Store   *storage.SQLiteEmbeddingStore
}

// Close releases the session and the embedding store.
func (c *Components) Close() {
	if c.Session != nil {
		_ = c.Session.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	opts := []session.Option{session.WithLogger(logger)}

	if cfg.Cache.Path != "" {
		store, err := storage.NewSQLiteEmbeddingStore(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding store: %w", err)
		}
		c.Store = store
		opts = append(opts, session.WithEmbeddingStore(store))
		logger.Debug("embedding store opened", zap.String("path", store.Path()))
	}

	sess, err := session.New(cfg, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	c.Session = sess
	return c, nil
}
