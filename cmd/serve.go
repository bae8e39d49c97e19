package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"eventapi/config"
	"eventapi/db"
	"eventapi/models"
	"eventapi/notify"
	"eventapi/payments"
	"eventapi/routes"
	"eventapi/services"
	"eventapi/utils"
)

func serveCmd() *cobra.Command {
	var skipIndexes bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, !skipIndexes)
		},
	}
	cmd.Flags().BoolVar(&skipIndexes, "skip-indexes", false, "do not create Mongo indexes at boot")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, ensureIndexes bool) error {
	// Mongo
	mg, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() { _ = mg.Disconnect(context.Background()) }()
	database := mg.Database(cfg.MongoDB)
	if ensureIndexes {
		if err := db.EnsureIndexes(ctx, database); err != nil {
			return err
		}
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("serve: redis at %s unreachable, cache and quota degrade to pass-through: %v", cfg.RedisAddr, err)
	}
	inv := utils.NewCacheInvalidator(rdb)

	// RabbitMQ
	var pub notify.Publisher = notify.Noop{}
	if cfg.RabbitMQURL != "" {
		b, err := notify.NewBroker(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Printf("serve: registration notifications disabled: %v", err)
		} else {
			pub = b
		}
	}
	defer pub.Close()

	events := models.NewMongoEventRepository(database.Collection(db.Events))
	users := models.NewMongoUserRepository(database.Collection(db.Users))
	feedback := models.NewMongoFeedbackRepository(database.Collection(db.Feedbacks))

	var checkout *services.Checkout
	if cfg.StripeSecretKey != "" {
		checkout = services.NewCheckout(events, payments.NewStripeProvider(cfg.StripeSecretKey), services.CheckoutConfig{
			Currency:    cfg.CheckoutCurrency,
			FrontendURL: cfg.FrontendURL,
		})
	} else {
		log.Println("serve: STRIPE_SECRET_KEY not set, create-payment is disabled")
	}

	var tokens *utils.TokenVerifier
	if cfg.ClerkJWTKey != "" {
		if tokens, err = utils.NewTokenVerifier(cfg.ClerkJWTKey); err != nil {
			return err
		}
	}
	var sessions routes.SessionVerifier
	if cfg.ClerkSecretKey != "" {
		sessions = utils.NewSessionClient(cfg.ClerkAPIURL, cfg.ClerkSecretKey, nil)
	}

	media, err := utils.NewMediaStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}

	deps := routes.Deps{
		Users:            users,
		Events:           events,
		Feedback:         feedback,
		Reconciler:       services.NewReconciler(events, inv, pub),
		Checkout:         checkout,
		Feedbacks:        services.NewFeedback(events, feedback),
		Webhooks:         payments.NewWebhookVerifier(cfg.StripeWebhookSecret, cfg.WebhookInsecure),
		Sessions:         sessions,
		Media:            media,
		Invalidator:      inv,
		Redis:            rdb,
		CacheTTL:         cfg.CacheTTL,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		UploadDailyQuota: cfg.UploadDailyQuota,
	}
	// a nil *TokenVerifier in the interface would not compare equal to nil
	if tokens != nil {
		deps.Tokens = tokens
	}

	server := gin.Default()
	stopLimiters := routes.RegisterRoutes(server, deps)
	defer stopLimiters()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("serve: listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
