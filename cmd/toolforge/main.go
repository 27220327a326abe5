// toolforge - tool-invocation orchestration and training-example assembly.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsalazar/toolforge/internal/api"
	"github.com/jsalazar/toolforge/internal/api/handlers"
	"github.com/jsalazar/toolforge/internal/domain/audit"
	"github.com/jsalazar/toolforge/internal/domain/dataset"
	"github.com/jsalazar/toolforge/internal/domain/dispatch"
	"github.com/jsalazar/toolforge/internal/domain/tool"
	"github.com/jsalazar/toolforge/internal/domain/turn"
	"github.com/jsalazar/toolforge/internal/infra/config"
	"github.com/jsalazar/toolforge/internal/infra/eventbus"
	"github.com/jsalazar/toolforge/internal/infra/llm"
	"github.com/jsalazar/toolforge/internal/infra/logging"
	"github.com/jsalazar/toolforge/internal/infra/sqlite"
	"github.com/jsalazar/toolforge/internal/mcpserver"
	"github.com/jsalazar/toolforge/internal/server"
	"github.com/jsalazar/toolforge/internal/version"
	pkgauth "github.com/jsalazar/toolforge/pkg/auth"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("toolforge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	switch fs.Arg(0) {
	case "", "serve":
		return runServe(out)
	case "mcp":
		return runMCP(out)
	case "seed":
		return runSeed(fs.Args()[1:], out)
	default:
		fmt.Fprintf(out, "unknown command %q\n\n", fs.Arg(0)) //nolint:errcheck
		printHelp(out)
		return 2
	}
}

// pipeline is the wired core shared by every command: catalog, executor,
// dispatcher, and the audit trail behind it.
type pipeline struct {
	registry *tool.Registry
	disp     *dispatch.Dispatcher
	audit    *audit.Service
	logger   *zap.Logger
	close    func()
}

func buildPipeline(cfg config.Config) (*pipeline, error) {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	registry, err := tool.NewBuiltinRegistry(tool.CatalogDeps{FilesRoot: cfg.FilesRoot})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("build tool catalog: %w", err)
	}

	bus := eventbus.New()
	auditSvc := audit.NewService(db, bus, logger)

	exec := tool.NewExecutor(cfg.ToolTimeout, logger)
	disp := dispatch.New(registry, exec, dispatch.Policy{
		MaxCalls:   cfg.MaxCallsPerTurn,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
	}, logger, auditSvc)

	return &pipeline{
		registry: registry,
		disp:     disp,
		audit:    auditSvc,
		logger:   logger,
		close: func() {
			db.Close()    //nolint:errcheck
			logger.Sync() //nolint:errcheck
		},
	}, nil
}

func runServe(out io.Writer) int {
	cfg := config.Load()

	p, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintf(out, "toolforge: %v\n", err) //nolint:errcheck
		return 1
	}
	defer p.close()

	store, err := dataset.OpenStore(cfg.DatasetPath)
	if err != nil {
		fmt.Fprintf(out, "toolforge: open dataset: %v\n", err) //nolint:errcheck
		return 1
	}
	defer store.Close() //nolint:errcheck

	var runner handlers.TurnRunner
	if cfg.OpenRouterAPIKey != "" {
		router := llm.NewRouter(map[string]llm.Provider{
			"openrouter": llm.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel),
		}, cfg.LLMProvider)
		provider, err := router.Route(context.Background())
		if err != nil {
			fmt.Fprintf(out, "toolforge: %v\n", err) //nolint:errcheck
			return 1
		}
		runner = turn.NewRunner(provider, p.disp, store, p.registry, nil, p.logger)
	} else {
		p.logger.Warn("no OpenRouter API key configured; /api/v1/turns disabled")
	}

	secretHash, err := pkgauth.HashSecret(cfg.ServiceSecret)
	if err != nil {
		fmt.Fprintf(out, "toolforge: hash service secret: %v\n", err) //nolint:errcheck
		return 1
	}

	mux := api.NewRouter(api.Deps{
		Registry:    p.registry,
		Dispatcher:  p.disp,
		Runner:      runner,
		Audit:       p.audit,
		DatasetPath: cfg.DatasetPath,
		SigningKey:  []byte(cfg.JWTSecret),
		TokenTTL:    pkgauth.DefaultTokenTTL,
		Credentials: map[string]string{cfg.ServiceID: secretHash},
	})

	srvConfig := server.DefaultConfig()
	srvConfig.Addr = cfg.HTTPAddr
	srv := server.New(mux, srvConfig, p.logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(out, "toolforge: %v\n", err) //nolint:errcheck
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(out, "toolforge: %v\n", err) //nolint:errcheck
			return 1
		}
	}
	return 0
}

func runMCP(out io.Writer) int {
	cfg := config.Load()

	p, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintf(out, "toolforge: %v\n", err) //nolint:errcheck
		return 1
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(p.registry, p.disp, p.logger)
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(out, "toolforge: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func runSeed(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("toolforge seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	scenarioPath := fs.String("scenarios", "scenarios.yaml", "Path to the scenario YAML file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()

	p, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintf(out, "toolforge: %v\n", err) //nolint:errcheck
		return 1
	}
	defer p.close()

	scenarios, err := dataset.LoadScenarios(*scenarioPath)
	if err != nil {
		fmt.Fprintf(out, "toolforge: load scenarios: %v\n", err) //nolint:errcheck
		return 1
	}

	store, err := dataset.OpenStore(cfg.DatasetPath)
	if err != nil {
		fmt.Fprintf(out, "toolforge: open dataset: %v\n", err) //nolint:errcheck
		return 1
	}
	defer store.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seeder := dataset.NewSeeder(p.disp, store, nil, p.logger)
	written, err := seeder.Seed(ctx, scenarios)
	if err != nil {
		fmt.Fprintf(out, "toolforge: seed: %v (%d examples written)\n", err, written) //nolint:errcheck
		return 1
	}

	fmt.Fprintf(out, "seeded %d examples to %s\n", written, cfg.DatasetPath) //nolint:errcheck
	return 0
}

func printHelp(out io.Writer) {
	helpText := `toolforge - tool-invocation orchestration and training-example assembly

Usage:
  toolforge [options] [command]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve        Start the HTTP API server (default)
  mcp          Serve the tool catalog over MCP on stdio
  seed         Run scripted scenarios and append training examples

Examples:
  toolforge --version
  toolforge serve
  toolforge mcp
  toolforge seed --scenarios scenarios.yaml`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
