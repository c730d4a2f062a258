package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/use-agent/filmcard/api"
	"github.com/use-agent/filmcard/cache"
	"github.com/use-agent/filmcard/config"
	"github.com/use-agent/filmcard/replacer"
	"github.com/use-agent/filmcard/scraper"
	"github.com/use-agent/filmcard/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("filmcard starting",
		"channel", cfg.Discord.MoviesChannelID,
		"fetchMode", cfg.Scraper.FetchMode,
		"maxBrowsers", cfg.Browser.MaxConcurrent,
		"api", cfg.Server.Enabled,
	)

	// ── 3. Initialise scraper (browsers launch per message) ─────────
	sc := scraper.NewScraper(cfg.Browser, cfg.Scraper, cfg.Engine)
	defer sc.Close()

	// ── 4. Initialise field cache ───────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Stop()

	// ── 5. Connect to Discord ───────────────────────────────────────
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		slog.Error("failed to create discord session", "error", err)
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	rp := replacer.New(cfg.Discord.MoviesChannelID, sc, replacer.NewDiscordTransport(session), sc.FieldOptions(), cc)
	if n := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret); n != nil {
		rp.SetNotifier(n)
		slog.Info("webhook notifications enabled", "url", cfg.Webhook.URL)
	}

	// Cancelled when in-flight replacements outlive the shutdown grace period.
	botCtx, cancelBot := context.WithCancel(context.Background())
	defer cancelBot()

	session.AddHandlerOnce(replacer.OnReady)
	session.AddHandler(replacer.OnMessageCreate(botCtx, rp))

	if err := session.Open(); err != nil {
		slog.Error("failed to open discord gateway", "error", err)
		os.Exit(1)
	}

	// ── 6. Optional status API ──────────────────────────────────────
	var srv *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(sc, rp, cc, cfg, time.Now())
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv = &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("HTTP server error", "error", err)
				os.Exit(1)
			}
		}()
	}

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Stop receiving events before draining.
	if err := session.Close(); err != nil {
		slog.Warn("discord session close failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDrain()
	if err := rp.Wait(drainCtx); err != nil {
		slog.Warn("in-flight replacements or webhook deliveries did not finish, aborting them", "error", err)
		cancelBot()
	}

	slog.Info("filmcard stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
