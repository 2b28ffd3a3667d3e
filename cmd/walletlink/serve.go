package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/layer-3/walletlink/adapters/events"
	"github.com/layer-3/walletlink/adapters/store"
	"github.com/layer-3/walletlink/adapters/store/postgres"
	"github.com/layer-3/walletlink/adapters/tokenizer"
	"github.com/layer-3/walletlink/internal/config"
	"github.com/layer-3/walletlink/ports"
	"github.com/layer-3/walletlink/service"
	transport "github.com/layer-3/walletlink/transport/http"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

// deps holds the long lived clients opened for the server
type deps struct {
	redis     *redis.Client
	db        *bun.DB
	publisher message.Publisher
}

func (d *deps) close(logger *zap.Logger) {
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	d := &deps{}
	defer d.close(logger)

	if cfg.UsesRedis() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		d.redis = redis.NewClient(opts)
	}

	if cfg.UsesPostgres() {
		db, err := postgres.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		d.db = db
	}

	nonceStore, err := buildNonceStore(ctx, cfg, d, logger)
	if err != nil {
		return err
	}
	userStore := buildUserStore(cfg, d)

	var opts []service.Option

	if cfg.Token.Enabled {
		key, err := tokenizer.LoadSigningKey(cfg.Token.KeyPath)
		if err != nil {
			return err
		}
		if cfg.Token.KeyPath == "" {
			logger.Warn("no token signing key configured, using an ephemeral key")
		}
		opts = append(opts, service.WithTokenizer(tokenizer.NewJWTTokenizer(key), cfg.Token.TTL))
	}

	pub, err := buildPublisher(cfg, d, logger)
	if err != nil {
		return err
	}
	if pub != nil {
		d.publisher = pub
		opts = append(opts, service.WithEventPublisher(events.NewWatermillPublisher(pub, cfg.Events.Topic)))
	}

	nonces := service.NewNonceService(nonceStore)
	verifier := service.NewWalletVerifier(nonces, userStore, cfg.Chain.ID, logger)
	svc := service.NewLog(service.NewAuthService(nonces, verifier, userStore, logger, opts...), logger)

	var limiter *transport.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = transport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		go limiter.Run(ctx, cfg.RateLimit.IdleTTL)
	}

	gin.SetMode(cfg.Server.Mode)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      transport.SetupRouter(svc, logger, limiter, transport.WithTrustedProxies(cfg.Server.TrustedProxies)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("starting walletlink",
		zap.String("nonce_store", cfg.Store.Nonces),
		zap.String("user_store", cfg.Store.Users),
		zap.String("events", cfg.Events.Driver),
		zap.Uint64("chain_id", cfg.Chain.ID),
	)

	return transport.ServeAndWait(ctx, logger, srv, cfg.Server.ShutdownTimeout)
}

func buildNonceStore(ctx context.Context, cfg *config.Config, d *deps, logger *zap.Logger) (ports.NonceStore, error) {
	switch cfg.Store.Nonces {
	case config.BackendRedis:
		return store.NewRedisNonceStore(d.redis, cfg.Nonce.Retention), nil
	case config.BackendPostgres:
		s := postgres.NewStore(d.db)
		go s.RunJanitor(ctx, logger, cfg.Nonce.JanitorInterval, cfg.Nonce.Retention)
		logger.Debug("nonce janitor started", zap.Duration("interval", cfg.Nonce.JanitorInterval))
		return s, nil
	case config.BackendMemory:
		s := store.NewMemoryNonceStore()
		go s.RunJanitor(ctx, cfg.Nonce.JanitorInterval, cfg.Nonce.Retention)
		logger.Debug("nonce janitor started", zap.Duration("interval", cfg.Nonce.JanitorInterval))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown nonce store: %s", cfg.Store.Nonces)
	}
}

func buildUserStore(cfg *config.Config, d *deps) ports.UserStore {
	if cfg.Store.Users == config.BackendPostgres {
		return postgres.NewStore(d.db)
	}
	return store.NewMemoryUserStore()
}

// buildPublisher returns nil when events are disabled
func buildPublisher(cfg *config.Config, d *deps, logger *zap.Logger) (message.Publisher, error) {
	wmLogger := events.NewZapLoggerAdapter(logger)

	switch cfg.Events.Driver {
	case config.EventsRedisStream:
		pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: d.redis}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
		}
		return pub, nil
	case config.EventsGoChannel:
		return gochannel.NewGoChannel(gochannel.Config{}, wmLogger), nil
	default:
		return nil, nil
	}
}
