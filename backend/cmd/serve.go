package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"radbank/backend/config"
	"radbank/backend/models"
	"radbank/backend/quiz"
	"radbank/backend/routes"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, logger, db, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := utils.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	promoteAdmins(cmd.Context(), db, cfg, logger)

	sessions, closeSessions, err := sessionStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	app, manager := routes.NewApp(routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Logger:   logger,
		Sessions: sessions,
	})
	defer manager.Close()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on :%s", cfg.ServerPort)
		errCh <- app.Listen(":" + cfg.ServerPort)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(ctx)
}

// promoteAdmins gives the bootstrap addresses the admin role. Only accounts
// that already exist are promoted; later signups need `radbank promote`.
func promoteAdmins(ctx context.Context, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	users := store.NewUserStore(db)
	for _, email := range cfg.AdminEmails {
		err := users.SetRole(ctx, email, models.RoleAdmin)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Printf("promote %s: %v", email, err)
		}
	}
}

func sessionStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (quiz.SessionStore, func(), error) {
	if cfg.SessionStore != "redis" {
		return quiz.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	const maxRetries = 5
	var err error
	for i := 1; i <= maxRetries; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			break
		}
		logger.Printf("waiting for redis (%d/%d): %v", i, maxRetries, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	logger.Printf("quiz sessions cached in redis at %s", cfg.RedisAddr)
	return quiz.NewRedisStore(client, cfg.SessionTTL), func() { client.Close() }, nil
}
