package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/config"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/handler"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/repository"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/auth"
	"github.com/SHAN0945/SafeTrail/shared/database"
	"github.com/SHAN0945/SafeTrail/shared/discovery"
	"github.com/SHAN0945/SafeTrail/shared/logger"
	"github.com/SHAN0945/SafeTrail/shared/mailer"
	"github.com/SHAN0945/SafeTrail/shared/provider"
	"github.com/SHAN0945/SafeTrail/shared/ratelimit"
	"github.com/SHAN0945/SafeTrail/shared/utilities"
	"github.com/SHAN0945/SafeTrail/shared/validator"
)

const storeCheckInterval = 15 * time.Second

func main() {
	cfg := config.NewUserServiceConfig(logger.NewLogger(logger.Config{Service: "user-service"}))

	log := logger.NewLogger(logger.Config{
		Service: cfg.Consul.ServiceName,
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoDB, err := database.NewMongo(ctx, log, database.MongoConfig{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}

	db := mongoDB.Database()
	userRepo := repository.NewUserMongoRepository(ctx, log, db)
	sessionRepo := repository.NewSessionMongoRepository(ctx, log, db)
	passwordResetTokenRepo := repository.NewPasswordResetTokenMongoRepository(ctx, log, db)

	v, err := validator.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create validator")
	}

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Issuer)
	googleProvider := provider.NewGoogleOAuthProvider(provider.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})

	var sender mailer.Sender
	if cfg.SMTP.Enabled() {
		sender = mailer.NewMailer(log, cfg.SMTP)
	} else {
		log.Warn().Msg("SMTP_HOST not set, password reset is disabled")
	}

	var rateLimitCounter ratelimit.Counter
	var redisClient *redis.Client
	if cfg.RateLimit.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, rate limiting fails open until it recovers")
		}
		rateLimitCounter = ratelimit.NewRedisCounter(redisClient)
	}

	userUsecase := usecase.NewUserUsecase(userRepo, v)
	authUsecase := usecase.NewAuthUsecase(userUsecase, sessionRepo, googleProvider, jwtAuth, cfg)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(userUsecase, passwordResetTokenRepo, jwtAuth, sender, cfg)

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.NewUserHTTPHandler(
			authUsecase,
			userUsecase,
			passwordResetUsecase,
			v,
			mongoDB,
			rateLimitCounter,
			cfg,
			log,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	healthServer := utilities.NewHealthServer(log)
	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCHealthPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen for gRPC health checks")
	}

	go func() {
		if err := healthServer.Serve(healthListener); err != nil {
			log.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()
	go watchStore(ctx, mongoDB, healthServer, log)

	var registry *discovery.ConsulRegistry
	registration := discovery.Registration{
		ServiceName: cfg.Consul.ServiceName,
		Host:        cfg.Consul.ServiceHost,
		HTTPPort:    cfg.Server.Port,
		GRPCPort:    cfg.Server.GRPCHealthPort,
		Tags:        []string{"http", "auth"},
	}
	if cfg.Consul.Enabled() {
		registry, err = discovery.NewConsulRegistry(cfg.Consul.Addr, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create consul client")
		}
		if err := registry.Register(registration); err != nil {
			log.Fatal().Err(err).Msg("failed to register with consul")
		}
	}

	go func() {
		log.Info().Str("address", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if registry != nil {
		if err := registry.Deregister(registration); err != nil {
			log.Error().Err(err).Msg("failed to deregister from consul")
		}
	}

	healthServer.SetServing(false)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server")
	}
	healthServer.Stop()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to disconnect from mongo")
	}

	log.Info().Msg("shutdown complete")
}

// watchStore reports NOT_SERVING on the gRPC health service while Mongo is unreachable.
func watchStore(ctx context.Context, store handler.HealthChecker, health *utilities.HealthServer, log *zerolog.Logger) {
	ticker := time.NewTicker(storeCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := store.Ping(pingCtx)
			cancel()

			if err != nil {
				log.Warn().Err(err).Msg("mongo ping failed")
			}
			health.SetServing(err == nil)
		}
	}
}
