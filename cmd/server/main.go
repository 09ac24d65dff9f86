package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"support-chat/internal/analytics"
	"support-chat/internal/chatproxy"
	"support-chat/internal/config"
	"support-chat/internal/llm"
	"support-chat/internal/logging"
	"support-chat/internal/records"
	"support-chat/internal/scheduler"
	"support-chat/internal/storage"
	"support-chat/internal/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: .env file not loaded: %v", err)
	}

	cfg := config.New()
	gin.SetMode(cfg.GinMode)

	logger, hook, err := logging.New(cfg.LogLevel, cfg.LogDir, "server")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	if hook != nil {
		defer hook.Close()
	}

	store := records.NewStore(cfg.DataDir,
		records.WithLogger(logger),
		records.WithStrictLoad(cfg.RecordsStrictLoad),
	)

	var rec storage.Recorder = storage.Nop{}
	if cfg.InteractionLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.InteractionLogPath)
		if err != nil {
			logger.WithError(err).Warn("failed to init interaction log, continuing without it")
		} else {
			rec = fr
		}
	}

	var llmClient llm.Client
	if cfg.ChatAPIURL == "" {
		llmClient, err = llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
		if err != nil {
			logger.WithError(err).Fatal("failed to create llm client")
		}
	}

	proxy := chatproxy.New(chatproxy.Options{
		UpstreamURL:  cfg.ChatAPIURL,
		APIKey:       cfg.ChatAPIKey,
		Timeout:      cfg.ChatAPITimeout,
		LLM:          llmClient,
		SystemPrompt: readSystemPrompt(logger, cfg.SystemPromptPath),
		Recorder:     rec,
		Log:          logger,
	})

	srv := web.New(web.Deps{
		Addr:         cfg.HTTPAddr,
		Store:        store,
		Chat:         proxy,
		Log:          logger,
		WriteTimeout: cfg.ChatAPITimeout + 30*time.Second,
	})

	sched := scheduler.New(logger)
	sched.SetReportFunction(func(ctx context.Context) error {
		report, err := analytics.Collect(ctx, store, rec, time.Now().UTC())
		if err != nil {
			return err
		}
		logger.Info(report.Summary())
		return nil
	})
	if err := sched.Start(cfg.ReportCron); err != nil {
		logger.WithError(err).Fatal("failed to start scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.WithFields(logrus.Fields{
		"addr":     cfg.HTTPAddr,
		"data_dir": cfg.DataDir,
		"mode":     proxy.Mode(),
	}).Info("support chat started")

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("http server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http server shutdown")
	}
	sched.Stop()
	logger.Info("bye")
}

func readSystemPrompt(logger logrus.FieldLogger, path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Info("system prompt not loaded")
		return ""
	}
	return string(data)
}
