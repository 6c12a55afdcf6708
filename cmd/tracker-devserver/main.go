// Command tracker-devserver serves an in-memory tracker API for local
// development.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/srujanaA02/multi-tenant-saas/internal/config"
	"github.com/srujanaA02/multi-tenant-saas/internal/devserver"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	host       string
	port       int
	seed       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "tracker-devserver",
		Short:        "Serve an in-memory tracker API",
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/tracker/config.yaml)")
	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (overrides devserver.host)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port (overrides devserver.port)")
	cmd.Flags().BoolVar(&opts.seed, "seed", false, "create the demo tenant on startup")
	return cmd
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, opts *options) error {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return err
	}
	if opts.host != "" {
		cfg.DevServer.Host = opts.host
	}
	if opts.port != 0 {
		cfg.DevServer.Port = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg, err := logging.FromAppConfig(cfg.Logging, false)
	if err != nil {
		return err
	}
	// The server logs requests at info.
	logCfg.Level = min(logCfg.Level, zap.InfoLevel)
	logCfg.Fields["service"] = "tracker-devserver"
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := devserver.New(cfg.DevServer, devserver.WithLogger(logger.Named("devserver")))
	if err != nil {
		return err
	}
	if opts.seed {
		if err := seedDemo(srv.Store()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info(ctx, "seeded demo tenant", zap.String("subdomain", demoSubdomain))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}

const demoSubdomain = "demo"

// seedDemo creates the demo tenant with an admin, a member and one project
// holding a task in each state.
func seedDemo(store *devserver.Store) error {
	_, admin, err := store.RegisterTenant(tracker.RegisterTenantRequest{
		TenantName:    "Demo Company",
		Subdomain:     demoSubdomain,
		AdminFullName: "Demo Admin",
		AdminEmail:    "admin@demo.com",
		AdminPassword: "Demo@123",
	})
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(admin.TenantID, tracker.CreateUserRequest{
		FullName: "Demo User",
		Email:    "user1@demo.com",
		Password: "User@123",
		Role:     tracker.RoleUser,
	}); err != nil {
		return err
	}

	project := store.CreateProject(admin, tracker.CreateProjectRequest{
		Name:        "Website Redesign",
		Description: "Refresh the marketing site",
	})
	for _, t := range []tracker.CreateTaskRequest{
		{ProjectID: project.ID, Title: "Collect requirements", Status: tracker.TaskDone},
		{ProjectID: project.ID, Title: "Draft wireframes", Status: tracker.TaskInProgress},
		{ProjectID: project.ID, Title: "Build landing page", Status: tracker.TaskTodo},
	} {
		if _, err := store.CreateTask(admin.TenantID, t); err != nil {
			return err
		}
	}
	return nil
}
