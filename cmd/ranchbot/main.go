package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dam2452/ranchbot/internal/auth"
	"github.com/dam2452/ranchbot/internal/bot"
	"github.com/dam2452/ranchbot/internal/chat"
	"github.com/dam2452/ranchbot/internal/clip"
	"github.com/dam2452/ranchbot/internal/config"
	"github.com/dam2452/ranchbot/internal/httpapi"
	"github.com/dam2452/ranchbot/internal/mcpserver"
	"github.com/dam2452/ranchbot/internal/render"
	"github.com/dam2452/ranchbot/internal/search"
	"github.com/dam2452/ranchbot/internal/session"
	"github.com/dam2452/ranchbot/internal/store"
	"github.com/dam2452/ranchbot/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("RanchBot clip service\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("SQLite Driver: %s (%s)\n", store.DriverName, store.BuildMode)
		os.Exit(0)
	}

	mcpMode := len(os.Args) > 1 && os.Args[1] == "mcp"

	// In MCP mode stdout is reserved for the protocol.
	logOut := os.Stdout
	if mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))

	if err := run(logger, mcpMode); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, mcpMode bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var embedder search.Embedder
	if cfg.OpenAIKey != "" {
		embedder = search.NewOpenAIEmbedder(cfg.OpenAIKey)
	}

	index, err := search.NewPGIndex(cfg.IndexDSN, embedder)
	if err != nil {
		return fmt.Errorf("failed to connect to search index: %w", err)
	}
	defer func() { _ = index.Close() }()

	clips, err := store.NewClipStore(cfg.ClipDBPath, store.Quota{
		MaxClips:   cfg.SavedClipLimit,
		MaxNameLen: cfg.SavedClipNameMax,
	})
	if err != nil {
		return fmt.Errorf("failed to open clip store: %w", err)
	}
	defer func() { _ = clips.Close() }()

	searcher := search.NewSearcher(index, cfg.Series)
	sessions := session.NewStore(cfg.SessionTTL)
	resolver := clip.NewResolver(sessions, searcher, clip.Limits{
		MaxClipSeconds:   cfg.MaxClipDuration,
		ExtensionSeconds: cfg.ExtensionLimit,
	})
	compiler := clip.NewCompiler(sessions, clips, clip.CompileLimits{
		MaxClips:        cfg.CompileMaxClips,
		MaxTotalSeconds: cfg.CompileMaxDuration,
	})
	renderer := render.NewHTTPRenderer(cfg.RendererURL, cfg.RendererTimeout)

	service := bot.NewService(cfg.Series, searcher, sessions, resolver, compiler, clips, renderer)
	registry := service.Registry()
	gate := auth.NewGate(registry.MinTiers())
	cmdLimiter := auth.NewLimiter(cfg.CommandLimit, cfg.CommandWindow)
	authLimiter := auth.NewLimiter(cfg.AuthLimit, cfg.AuthWindow)
	dispatcher := bot.NewDispatcher(registry, gate, cmdLimiter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mcpMode {
		identity := types.UserIdentity{
			UserID: getEnv("RANCHBOT_MCP_USER", "assistant"),
			Tier:   types.TierAdmin,
		}
		logger.Info("MCP server ready, listening on stdio", "user", identity.UserID)
		return mcpserver.NewServer(dispatcher, identity).Serve(ctx)
	}

	tokens, err := httpapi.ParseTokenTable(os.Getenv("RANCHBOT_TOKENS"))
	if err != nil {
		return fmt.Errorf("failed to parse RANCHBOT_TOKENS: %w", err)
	}
	identities := httpapi.NewStaticResolver(tokens)

	chatHandler := chat.NewHandler(dispatcher, identities, authLimiter, logger)
	server := httpapi.NewServer(cfg.ListenAddr, dispatcher, identities, authLimiter, logger, chatHandler)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sessions.RunSweeper(ctx, time.Hour)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
