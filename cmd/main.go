package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	elog "github.com/labstack/gommon/log"

	"narrativeiq/pkg/auth"
	"narrativeiq/pkg/config"
	"narrativeiq/pkg/enhance"
	"narrativeiq/pkg/graph"
	"narrativeiq/pkg/inference"
	"narrativeiq/pkg/ledger"
	"narrativeiq/pkg/server"
	"narrativeiq/pkg/store"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()

	cfg := config.Load()

	inf, err := selectInferencer(cfg)
	if err != nil {
		log.Fatal("inferencer setup failed", "err", err)
	}

	storeCfg := store.DefaultConfig(cfg.DataDir)
	if cfg.InMemoryDB {
		storeCfg = store.InMemoryConfig()
	}
	st, err := store.Open(storeCfg)
	if err != nil {
		log.Fatal("store open failed", "err", err)
	}
	defer st.Close()

	l := ledger.New(st, st, cfg.Pricing, cfg.AuditTimeout)
	a := auth.New(cfg.JWTSecret, cfg.TokenTTL)
	enh := enhance.NewService(inf, l, st, cfg)
	gr := graph.NewService(inf, l, cfg)

	srv := server.NewServer(cfg, st, a, l, enh, gr)
	srv.Echo.Logger.SetLevel(elog.INFO)

	finishedShutDown := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "err", err)
		}
		close(finishedShutDown)
	}()

	if err := srv.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "err", err)
	}
	<-finishedShutDown
}

// selectInferencer picks the generation backend by configured credentials:
// Groq first, then Gemini, then OpenAI. With no key at all the OpenAI client
// points at a local OpenAI-compatible endpoint.
func selectInferencer(cfg *config.Config) (inference.Inferencer, error) {
	if cfg.GroqAPIKey != "" {
		log.Info("using groq", "model", cfg.GroqModel)
		return inference.NewGroqInferencer(cfg.GroqAPIKey, cfg.GroqModel), nil
	}
	if cfg.GeminiAPIKey != "" {
		log.Info("using gemini", "model", cfg.GeminiModel)
		return inference.NewGeminiInferencer(cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	openAI := inference.NewOpenAIInferencer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if cfg.OpenAIAPIKey == "" {
		log.Warn("no API key configured, falling back to local endpoint", "base", "http://localhost:1234/v1")
		openAI.ChangeBaseURL("http://localhost:1234/v1")
		openAI.SetModel("")
	} else {
		log.Info("using openai", "model", cfg.OpenAIModel)
	}
	return openAI, nil
}
