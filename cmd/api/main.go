package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/fund-faq/widget/internal/config"
	"github.com/zhouzirui/fund-faq/widget/internal/handler"
	"github.com/zhouzirui/fund-faq/widget/internal/logging"
	"github.com/zhouzirui/fund-faq/widget/internal/model/example"
	"github.com/zhouzirui/fund-faq/widget/internal/service/backend"
	"github.com/zhouzirui/fund-faq/widget/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client, err := backend.NewClient(cfg.Backend, backend.WithLogger(logging.Named(logger, "backend")))
	if err != nil {
		return err
	}

	exampleStore := example.NewMemoryStore(example.Seed())
	chatService := chat.NewService(client,
		chat.WithPolicy(cfg.Chat.Policy),
		chat.WithLoadingText(cfg.Chat.LoadingText),
		chat.WithLogger(logging.Named(logger, "chat")),
	)
	defer chatService.Close()

	router := handler.NewRouter(exampleStore, chatService, handler.Options{
		Title:  cfg.Chat.Title,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// 关闭服务会结束所有事件流，Shutdown 不必等到超时。
	srv.RegisterOnShutdown(chatService.Close)

	logger.Info("chat widget listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("endpoint", client.Endpoint()),
		zap.String("policy", cfg.Chat.Policy),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runServer(gctx, srv)
	})
	g.Go(func() error {
		return chatService.RunJanitor(gctx, cfg.Chat.SessionTTL)
	})
	return g.Wait()
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
