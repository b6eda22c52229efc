package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trackitnow-backend/internal/chatbot"
	"trackitnow-backend/internal/config"
	"trackitnow-backend/internal/db"
	"trackitnow-backend/internal/logging"
	"trackitnow-backend/internal/server"
	"trackitnow-backend/internal/store"
)

const janitorInterval = time.Minute

// backends holds the connections shared by the serve commands. Fields are nil when
// the matching backend is not configured.
type backends struct {
	cfg    config.Config
	logger zerolog.Logger
	db     *db.DB
	redis  *redis.Client
}

func setup(ctx context.Context, service string, needDB bool) (*backends, error) {
	cfg := config.Load()
	logging.Configure(cfg.Logging(service))
	logger := logging.Base()
	cfg.Warn(logger)

	rt := &backends{cfg: cfg, logger: logger}
	if needDB && cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := database.Migrate(ctx); err != nil {
				database.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		rt.db = database
	}
	if cfg.RedisAddr != "" {
		client, err := store.NewRedisClient(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.redis = client
	}
	return rt, nil
}

func (rt *backends) close() {
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.redis != nil {
		rt.redis.Close()
	}
}

func (rt *backends) documents() store.DocumentStore {
	if rt.db != nil {
		return store.NewDatabaseStore(rt.db)
	}
	return store.NewMemoryDocumentStore()
}

func (rt *backends) options() server.Options {
	opts := server.Options{
		AllowedOrigins:     rt.cfg.AllowedOrigins,
		RateLimitPerMinute: rt.cfg.RateLimitPerMinute,
		Logger:             rt.logger,
	}
	if rt.db != nil {
		opts.Checks = append(opts.Checks, rt.db.HealthCheck)
	}
	if rt.redis != nil {
		client := rt.redis
		opts.Checks = append(opts.Checks, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return opts
}

// listen serves h until ctx is cancelled, then drains in-flight requests.
func (rt *backends) listen(ctx context.Context, port string, h http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rt.logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func chatbotCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "chatbot",
		Short: "Serve the chatbot API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			rt, err := setup(ctx, "chatbot", true)
			if err != nil {
				return err
			}
			defer rt.close()

			classifier, err := chatbot.LoadClassifier(rt.cfg.IntentRulesFile)
			if err != nil {
				return err
			}

			var contexts store.ContextStore
			if rt.redis != nil {
				contexts = store.NewRedisContextStore(rt.redis, rt.cfg.SessionTTL)
			} else {
				mem := store.NewMemoryContextStore(rt.cfg.SessionTTL)
				go mem.RunJanitor(ctx, janitorInterval)
				contexts = mem
			}

			docs := rt.documents()
			svc := chatbot.NewService(classifier, chatbot.NewDispatcher(docs, docs), contexts)
			s := server.NewChatServer(rt.options(), svc)
			return rt.listen(ctx, flagOr(port, rt.cfg.ChatbotPort), s.Router())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides CHATBOT_PORT)")
	return cmd
}

func geolocationCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "geolocation",
		Short: "Serve the parcel and courier position API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			rt, err := setup(ctx, "geolocation", false)
			if err != nil {
				return err
			}
			defer rt.close()

			var positions store.PositionStore = store.NewMemoryPositionStore()
			if rt.redis != nil {
				positions = store.NewRedisPositionStore(rt.redis)
			}
			s := server.NewGeolocationServer(rt.options(), positions)
			return rt.listen(ctx, flagOr(port, rt.cfg.GeolocationPort), s.Router())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides GEOLOCATION_PORT)")
	return cmd
}

func notificationsCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Serve the notification API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			rt, err := setup(ctx, "notifications", true)
			if err != nil {
				return err
			}
			defer rt.close()

			s := server.NewNotificationServer(rt.options(), rt.documents())
			return rt.listen(ctx, flagOr(port, rt.cfg.NotificationPort), s.Router())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides NOTIFICATION_PORT)")
	return cmd
}

// flagOr returns the command-line value when set, else the configured one.
func flagOr(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}
