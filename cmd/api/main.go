package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"masterdata/auth"
	"masterdata/config"
	"masterdata/db"
	"masterdata/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "masterd",
		Short:         "Master data resource service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return root
}

// setup loads the configuration and the logger shared by every command.
func setup(cmd *cobra.Command) (*config.Config, *logging.ZapLogger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	db.SetLogger(logger.StdLog())
	return cfg, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap store: %w", err)
	}
	defer st.close()

	server, err := newServer(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("bootstrap server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "http server listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info(shutdownCtx, "http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(apply func(ctx context.Context, cfg *config.Config) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return apply(cmd.Context(), cfg)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: run(func(ctx context.Context, cfg *config.Config) error {
				conn, dialect, closeFn, err := openSQL(ctx, cfg)
				if err != nil {
					return err
				}
				defer closeFn()
				return db.Migrate(ctx, conn, dialect)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the migration status",
			RunE: run(func(ctx context.Context, cfg *config.Config) error {
				conn, dialect, closeFn, err := openSQL(ctx, cfg)
				if err != nil {
					return err
				}
				defer closeFn()
				return db.MigrationStatus(ctx, conn, dialect)
			}),
		},
	)
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID   string
		userType string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed guard token for development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			svc := auth.NewService(nil, cfg.Guard.JWTSecret, auth.WithTokenTTL(cfg.Guard.TokenTTL))
			token, err := svc.IssueToken(userID, auth.UserType(userType))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id carried by the token")
	cmd.Flags().StringVar(&userType, "user-type", string(auth.UserTypeUser), "user type carried by the token")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
