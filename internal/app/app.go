package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"

	"medcare/internal/config"
	"medcare/internal/consult"
	"medcare/internal/httpapi"
	"medcare/internal/httpx"
	"medcare/internal/integrations/llm"
	slackbot "medcare/internal/integrations/slack"
	"medcare/internal/license"
	"medcare/internal/logger"
	"medcare/internal/speech"
	"medcare/internal/storage"
	"medcare/internal/usage"
)

const shutdownTimeout = 5 * time.Second

func Main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogJSON)
	log.Info("Config loaded", logger.Fields{
		"provider":         cfg.LLMProvider,
		"model":            cfg.LLMModel,
		"store":            cfg.StoreDriver,
		"default_language": cfg.DefaultLanguage,
		"max_upload_bytes": cfg.MaxUploadBytes,
		"timezone":         cfg.Timezone,
		"http_timeout":     cfg.ExternalHTTPTimeout().String(),
		"slack":            cfg.SlackConfigured(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.OpenBackend(ctx, BackendConfig(cfg))
	if err != nil {
		log.Fatal("Failed to open store", logger.Fields{"driver": cfg.StoreDriver, "error": err.Error()})
	}
	store, err := storage.Open(ctx, backend, cfg.InstallationID)
	if err != nil {
		log.Fatal("Failed to open installation", logger.Fields{"error": err.Error()})
	}
	defer store.Close()
	log.Info("Store ready", logger.Fields{"driver": cfg.StoreDriver, "installation": store.InstallationID()})

	client, err := llm.New(LLMOptions(cfg), httpx.NewExternalClient(cfg.ExternalHTTPTimeoutSeconds), log)
	if err != nil {
		log.Fatal("Failed to build inference client", logger.Fields{"error": err.Error()})
	}

	tracker := usage.NewTracker(store, log)
	tracker.TrackStartup(ctx)
	licenses := license.NewManager(store, log)
	info := licenses.Check(ctx)
	log.Info("License checked", logger.Fields{"type": info.Type, "valid": info.Valid})

	synth := speech.NewCommand("espeak-ng")
	if !synth.Supported() {
		log.Warn("Speech synthesis unavailable, espeak-ng not found on PATH")
	}

	opts := consult.Options{
		MaxTokens:      cfg.LLMMaxTokens,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Usage:          tracker,
	}

	if cfg.SlackConfigured() {
		api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
		reviewer := slackbot.NewReviewer(slackbot.NewMessenger(api), store, cfg.ReviewChannelID, log)
		opts.Notifier = reviewer

		digest, err := slackbot.StartReviewDigest(cfg.ReviewDigestSchedule, cfg.Location, reviewer)
		if err != nil {
			log.Error("Review digest disabled", logger.Fields{"error": err.Error()})
		}
		if digest != nil {
			defer digest.Stop()
		}

		go func() {
			if err := slackbot.StartSlackBot(ctx, api, reviewer, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Slack bot stopped", logger.Fields{"error": err.Error()})
			}
		}()
	} else {
		log.Info("Slack review workflow disabled (slack tokens not set)")
	}

	svc := consult.NewService(client, store, log, opts)
	handlers := httpapi.NewHandlers(log, svc, store, synth, licenses, httpapi.Options{
		DefaultLanguage: cfg.DefaultLanguage,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(handlers, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server is running", logger.Fields{"addr": cfg.ListenAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Error running HTTP server", logger.Fields{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Fields{"error": err.Error()})
	} else {
		log.Info("Server stopped gracefully.")
	}
}

// LLMOptions selects the API key matching the configured provider.
func LLMOptions(cfg config.Config) llm.Options {
	opts := llm.Options{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
	}
	switch cfg.LLMProvider {
	case "openai":
		opts.APIKey = cfg.OpenAIAPIKey
		opts.BaseURL = cfg.OpenAIBaseURL
	default:
		opts.APIKey = cfg.AnthropicAPIKey
	}
	return opts
}

func BackendConfig(cfg config.Config) storage.BackendConfig {
	return storage.BackendConfig{
		Driver:        cfg.StoreDriver,
		DBPath:        cfg.DBPath,
		DatabaseURL:   cfg.DatabaseURL,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	}
}
