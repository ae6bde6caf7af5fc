// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/api/handlers"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/config"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	db "github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/database"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/llm"
	objectclient "github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/object-client"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/policy"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/services"
)

const shutdownGrace = 15 * time.Second

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Provider     core.LLMProvider
	Side         *services.SideChannel
	Server       *Server

	log *slog.Logger
}

// Deps are the collaborators App builds on. NewApp creates them from config;
// tests supply their own.
type Deps struct {
	DB          core.DbClient
	Storage     core.ObjectClient
	Provider    core.LLMProvider
	ProviderErr error
}

func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database_ready")

	deps := Deps{DB: dbClient}
	if objectclient.Configured(cfg) {
		s3, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			_ = dbClient.Close()
			return nil, err
		}
		deps.Storage = s3
		log.Info("object_storage_ready", "bucket", s3.Bucket())
	} else {
		log.Warn("object_storage_disabled")
	}

	// The provider outlives appCtx.
	deps.Provider, deps.ProviderErr = llm.NewProvider(ctx, cfg)
	if deps.ProviderErr != nil {
		log.Warn("llm_provider_unavailable", "provider", cfg.LLMProvider, "error", deps.ProviderErr)
	} else {
		log.Info("llm_provider_ready", "provider", deps.Provider.Name())
	}

	a, err := Assemble(appCtx, cfg, deps, log)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	return a, nil
}

// Assemble wires services and handlers over deps.
func Assemble(ctx context.Context, cfg *config.Config, deps Deps, log *slog.Logger) (*App, error) {
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the access policy, %w", err)
	}

	side := services.NewSideChannel(log, 10*time.Second)
	identity := services.NewIdentityService(deps.DB)
	ledger := services.NewLedgerService(deps.DB, log)
	conversation := services.NewConversationService(deps.DB)
	sessions := services.NewSessionService(deps.DB, conversation, engine)
	artifacts := services.NewArtifactService(deps.DB, sessions, deps.Storage, cfg.BucketName)

	chat := services.NewChatService(services.ChatDeps{
		Identity:     identity,
		Ledger:       ledger,
		Conversation: conversation,
		Provider:     deps.Provider,
		ProviderErr:  deps.ProviderErr,
		Side:         side,
		Log:          log,
	}, services.ChatConfig{
		Model:        cfg.ChatModel,
		SearchModel:  cfg.SearchModel,
		SystemPrompt: cfg.SystemPrompt,
		HistoryLimit: cfg.HistoryLimit,
		Prices:       services.PriceTable{ChatBase: cfg.ChatBaseCredits, WebSearch: cfg.WebSearchCredits},
	})

	h := Handlers{
		Chat:      handlers.NewChatHandler(chat, log),
		Sessions:  handlers.NewSessionHandler(sessions, log),
		Artifacts: handlers.NewArtifactHandler(artifacts, log),
		Credits:   handlers.NewCreditHandler(identity, ledger, log),
	}

	return &App{
		DBClient:     deps.DB,
		ObjectClient: deps.Storage,
		Provider:     deps.Provider,
		Side:         side,
		Server:       NewServer(cfg, h, side, log),
		log:          log,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if c, ok := a.Provider.(io.Closer); ok {
		_ = c.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
