package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coop-loans/config"
	httpLayer "coop-loans/http"
	"coop-loans/repository"
	"coop-loans/service"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to a TOML config file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

type stores struct {
	members repository.MemberRepository
	loans   repository.LoanRepository
	close   func() error
}

func openStores(ctx context.Context, cfg config.StorageConfig) (stores, error) {
	if cfg.Driver == config.StorageMemory {
		mem := repository.NewMemoryStore()
		return stores{members: mem, loans: mem, close: func() error { return nil }}, nil
	}
	db, err := repository.OpenSQLStore(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return stores{}, err
	}
	return stores{members: db, loans: db, close: db.Close}, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (repository.CacheRepository, func() error) {
	if cfg.Driver != config.CacheRedis {
		return repository.NewMemoryCache(), func() error { return nil }
	}
	cache := repository.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		// Previews still work on a cold cache; keep serving.
		logger.Warn("redis unreachable, schedule previews will not be cached",
			zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return cache, cache.Close
}

// requestTimeout leaves a tenth of the write timeout for the 504 response.
// Without a write timeout handlers are not bounded either.
func requestTimeout(cfg config.ServerConfig) time.Duration {
	wt := cfg.WriteTimeout.Duration
	if wt <= 0 {
		return 0
	}
	return wt - wt/10
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.close()

	cache, closeCache := openCache(ctx, cfg.Cache, logger)
	defer closeCache()

	memberService := service.NewMemberService(st.members, logger)
	loanService := service.NewLoanService(st.members, st.loans, cache, logger)

	var limiter *httpLayer.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Refill.Duration)
		defer limiter.Stop()
	}

	api := httpLayer.NewServer(memberService, loanService, limiter, logger)
	api.SetRequestTimeout(requestTimeout(cfg.Server))
	if cfg.Metrics.Enabled {
		api.EnableMetrics()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("cache", cfg.Cache.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server exited")
	return nil
}
