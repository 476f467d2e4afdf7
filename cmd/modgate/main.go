package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stagelink/modgate/internal/adapters"
	"github.com/stagelink/modgate/internal/adapters/llm"
	"github.com/stagelink/modgate/internal/adapters/llm/gemini"
	"github.com/stagelink/modgate/internal/adapters/llm/openai"
	"github.com/stagelink/modgate/internal/api"
	"github.com/stagelink/modgate/internal/config"
	"github.com/stagelink/modgate/internal/db/sqlite"
	"github.com/stagelink/modgate/internal/event"
	"github.com/stagelink/modgate/internal/infra"
	"github.com/stagelink/modgate/internal/moderation"
	"github.com/stagelink/modgate/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFormatter(&config.MgFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	if err := observability.Init(); err != nil {
		log.WithError(err).Fatalln("cant init observability")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), cfg.DBFile)
	if err != nil {
		log.WithError(err).Fatalln("cant open db")
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.WithError(err).Error("cant close db")
		}
	}()

	policy, err := moderation.LoadPolicy()
	if err != nil {
		log.WithError(err).Fatalln("cant load moderation policy")
	}

	classifier := moderation.NewClassifier(newLLMAdapter(cfg.LLM, policy), policy, cfg.LLM.Timeout)
	ledger := moderation.NewLedger(dbClient, cfg.Moderation)
	gate := moderation.NewGate(classifier, ledger, dbClient, cfg.Moderation.ConfidenceThreshold)
	pipeline := moderation.NewPipeline(gate, ledger, dbClient, event.BusPublisher{}, policy)

	// Hand-off point for the real-time delivery collaborator. The gateway's
	// responsibility ends at the persisted row; this subscriber forwards it.
	fanoutLog := log.WithField("context", "fanout")
	event.Subscribe(event.TypeMessageSent, func(e event.Queueable) {
		sent, ok := e.(*event.MessageSent)
		if !ok {
			e.Drop()
			return
		}
		fanoutLog.WithField("message_id", sent.Message.ID).
			WithField("conversation_id", sent.Message.ConversationID).
			Debug("message published for delivery")
		e.Process()
	})
	cancelWorker := event.RunWorker(ctx)
	defer cancelWorker()

	handler := api.NewHandler(pipeline, ledger, dbClient)
	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handler, cfg.JWTSecret),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           observability.MetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.ListenAddr).Info("api server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-runCtx.Done():
		case <-infra.MonitorExecutable(runCtx):
			log.Info("executable updated, shutting down for restart")
			stop()
		}
		return nil
	})
	g.Go(func() error {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatalln("exiting")
	}
	log.Info("bye")
}

func newLLMAdapter(cfg config.LLM, policy *moderation.Policy) adapters.LLM {
	parameters := &llm.GenerationParameters{
		Temperature:      0.1,
		TopK:             40,
		TopP:             0.9,
		MaxOutputTokens:  1024,
		ResponseMIMEType: "application/json",
		ResponseSchema:   moderation.VerdictSchema(policy),
	}
	switch cfg.Type {
	case "gemini":
		return gemini.NewGemini(cfg.APIKey, cfg.Model, parameters, log.WithField("context", "gemini"))
	default:
		return openai.NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, parameters, log.WithField("context", "openai"))
	}
}
