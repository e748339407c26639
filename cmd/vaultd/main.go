package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hlothaire/miniLastPass/internal/server"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := server.Config{
		Addr:        os.Getenv("VAULTD_ADDR"),
		MongoURI:    os.Getenv("VAULTD_MONGO_URI"),
		MongoDB:     os.Getenv("VAULTD_MONGO_DB"),
		TokenSecret: os.Getenv("VAULTD_TOKEN_SECRET"),
		TokenTTL:    envMinutes("VAULTD_TOKEN_TTL_MINUTES"),
		KeyTTL:      envMinutes("VAULTD_KEY_TTL_MINUTES"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	defer func() {
		if err := srv.Close(context.Background()); err != nil {
			logger.Error("close", zap.Error(err))
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if httpSrv.Addr == "" {
		httpSrv.Addr = ":8080"
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", httpSrv.Addr))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
}

func envMinutes(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}
