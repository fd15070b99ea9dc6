package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/captable-cli/internal/captable"
	"github.com/sells-group/captable-cli/internal/filings"
	"github.com/sells-group/captable-cli/internal/gateway"
	"github.com/sells-group/captable-cli/internal/model"
	"github.com/sells-group/captable-cli/pkg/anthropic"
)

// builder is what the command handlers need from the pipeline.
type builder interface {
	Build(ctx context.Context, ticker string, forceRefresh bool) (*model.BuildResult, error)
}

// env bundles the wired pipeline dependencies for a command invocation.
type env struct {
	Builder builder
	Gateway gateway.Gateway
}

func (e *env) Close() {
	if err := e.Gateway.Close(); err != nil {
		zap.L().Warn("closing gateway failed", zap.Error(err))
	}
}

// initGateway opens the configured persistence backend.
func initGateway(ctx context.Context) (gateway.Gateway, error) {
	switch cfg.Gateway.Backend {
	case "fs", "":
		return gateway.NewFS(cfg.Gateway.Root)
	case "sqlite":
		return gateway.NewSQLite(cfg.Gateway.SQLitePath)
	case "postgres":
		if cfg.Gateway.DatabaseURL == "" {
			return nil, eris.New("gateway backend postgres requires gateway.database_url")
		}
		return gateway.NewPostgres(ctx, cfg.Gateway.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown gateway backend %q", cfg.Gateway.Backend)
	}
}

// initEnv wires the filing source, the model client, and the gateway
// into a ready builder.
func initEnv(ctx context.Context) (*env, error) {
	if cfg.Filings.Key == "" {
		return nil, eris.New("filings.key is required (CAPTABLE_FILINGS_KEY)")
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key is required (CAPTABLE_ANTHROPIC_KEY)")
	}

	gw, err := initGateway(ctx)
	if err != nil {
		return nil, err
	}

	source := filings.NewClient(cfg.Filings, zap.L())
	llm := anthropic.NewClient(cfg.Anthropic.Key)

	return &env{
		Builder: captable.NewBuilder(source, llm, gw, *cfg, zap.L()),
		Gateway: gw,
	}, nil
}
