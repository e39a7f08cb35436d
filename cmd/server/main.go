// Command server runs the ASGR account HTTP service.
//
// @title                       ASGR account service
// @version                     1.0
// @description                 Registration, login, e-mail confirmation and password rotation for ASGR players.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/asgr-game/account-service/internal/api"
	"github.com/asgr-game/account-service/internal/api/handler"
	"github.com/asgr-game/account-service/internal/core/ports"
	"github.com/asgr-game/account-service/internal/core/service"
	"github.com/asgr-game/account-service/internal/infrastructure/config"
	"github.com/asgr-game/account-service/internal/infrastructure/crypto"
	"github.com/asgr-game/account-service/internal/infrastructure/db/mongo"
	"github.com/asgr-game/account-service/internal/infrastructure/db/redis"
	"github.com/asgr-game/account-service/internal/infrastructure/mail"
	"github.com/asgr-game/account-service/internal/infrastructure/origin"
	"github.com/asgr-game/account-service/internal/infrastructure/queue"
	"github.com/asgr-game/account-service/internal/infrastructure/token"
	"github.com/asgr-game/account-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(ctx)
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "account-service",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	health := map[string]handler.PingFunc{
		"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}

	var denylist ports.TokenDenylist
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		denylist = redis.NewDenylist(rdb)
		health["redis"] = pingRedis(rdb)
	} else {
		log.Warn().Msg("redis disabled, logout does not revoke tokens")
	}

	issuer, err := token.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		return err
	}

	users := mongo.NewUserRepository(db)
	confirmations := mongo.NewConfirmationRepository(db)
	tx := mongo.NewTransactor(client, cfg.Mongo.Transactions)

	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	mailer := mail.NewConfirmationMailer(users, confirmations, sender, cfg.PublicBaseURL)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.SMTP.Workers, mailer, log.With().Str("component", "mail").Logger())
	dispatcher.Start(workerCtx)
	defer func() {
		cancelWorkers()
		dispatcher.Wait()
	}()

	accounts := service.NewAccountService(service.AccountDeps{
		Users:        users,
		Confirmation: service.NewConfirmationService(confirmations, users, tx, cfg.Auth.ConfirmationTTL, log),
		Hasher:       crypto.NewBcryptHasher(cfg.Auth.BcryptCost),
		Issuer:       issuer,
		Events:       mongo.NewEventLogRepository(db),
		Tx:           tx,
		Denylist:     denylist,
		Mail:         dispatcher,
		Origin:       origin.NewReverseDNS(net.DefaultResolver, 0),
		TokenTTL:     cfg.Auth.TokenTTL,
	}, log)

	e := api.NewRouter(api.RouterDeps{
		Accounts: accounts,
		Health:   handler.NewHealthHandler(health),
		Log:      log,
		Swagger:  cfg.Env != "production",
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func pingRedis(rdb *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
