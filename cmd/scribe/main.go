package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scribeapp/scribe/internal/auth"
	"github.com/scribeapp/scribe/internal/config"
	"github.com/scribeapp/scribe/internal/publish"
	"github.com/scribeapp/scribe/internal/server"
	"github.com/scribeapp/scribe/internal/session"
	"github.com/scribeapp/scribe/internal/slack"
	"github.com/scribeapp/scribe/internal/transcribe"
	"github.com/scribeapp/scribe/internal/translate"
	"github.com/scribeapp/scribe/internal/web"
)

func main() {
	log.Println("scribe: starting")

	configPath := flag.String("config", "scribe.yaml", "path to the config file")
	flag.Parse()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, warning := range warnings {
		log.Printf("warning: %s", warning)
	}

	var storeOpts []session.Option
	if cfg.DevelopmentMode {
		storeOpts = append(storeOpts, session.WithDevSessionID(cfg.DevSessionID))
	}
	store := session.NewStore(storeOpts...)

	flow := auth.NewFlow(auth.Config{
		AuthURL:      cfg.SlackAuthURL,
		TokenURL:     cfg.SlackTokenURL,
		ClientID:     cfg.SlackClientID,
		ClientSecret: cfg.SlackClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		TeamID:       cfg.SlackTeamID,
		UserScopes:   cfg.SlackUserScopes,
	}, func(token string) auth.Directory {
		return slack.New(token, slack.WithBaseURL(cfg.SlackAPIURL))
	})

	var engine server.TranscriptionEngine
	switch cfg.TranscriptionEngine {
	case "deepgram":
		engine = transcribe.NewDeepgram(cfg.DeepgramAPIKey, cfg.DeepgramModel)
	default:
		engine = transcribe.NewWhisper(cfg.OpenAIAPIKey, cfg.WhisperModel)
	}

	var translator publish.Translator
	if cfg.PseudoTranslate {
		translator = translate.Pseudo{}
	} else {
		translator = translate.NewDeepL(cfg.DeepLAPIKey, cfg.SourceLanguage)
	}

	var pipelineOpts []publish.Option
	if cfg.DevelopmentMode {
		pipelineOpts = append(pipelineOpts, publish.WithDevelopmentBanner())
	}
	pipeline := publish.New(translator, cfg.SourceLanguage, pipelineOpts...)

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("renderer init failed: %v", err)
	}

	srv := server.New(server.Config{
		UploadPath:       cfg.UploadPath,
		SourceLanguage:   cfg.SourceLanguage,
		TargetLanguages:  cfg.TargetLanguages,
		LanguageChannels: cfg.LanguageChannels,
	}, store, flow, engine, pipeline, server.MessengerFactory(cfg.SlackAPIURL), renderer)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Handler()}
	go func() {
		log.Printf("scribe: listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("scribe: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}
