// Package main implements the tracker CLI, a terminal client for the
// multi-tenant project and task tracker.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srujanaA02/multi-tenant-saas/internal/app"
	"github.com/srujanaA02/multi-tenant-saas/internal/config"
)

var version = "dev"

// errNotSignedIn is returned by protected commands without a session.
var errNotSignedIn = errors.New("not signed in: run 'tracker login' first")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one CLI invocation. The app is closed even when the command
// fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := c.teardown(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// cli holds state shared by every command of one invocation.
type cli struct {
	configPath string
	apiURL     string
	app        *app.App
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "tracker",
		Short: "Terminal client for the multi-tenant project tracker",
		Long: `tracker signs in to a tenant of the project tracker service and manages
its projects, tasks and team members.

Configuration is read from ~/.config/tracker/config.yaml and TRACKER_*
environment variables.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/tracker/config.yaml)")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "tracker service base URL (overrides api.base_url)")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.registerTenantCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.dashboardCmd(),
		c.projectsCmd(),
		c.tasksCmd(),
		c.usersCmd(),
	)
	return root
}

// setup loads config and builds the app. The session integrity check runs
// here, before any command touches the session.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithFile(c.configPath)
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	c.app, err = app.New(cmd.Context(), cfg,
		app.WithNotifier(&toastNotifier{w: cmd.ErrOrStderr()}),
		app.WithVersion(version),
	)
	return err
}

func (c *cli) teardown(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return c.app.Close(ctx)
}

// guard enforces the protected-route rule for commands that need a session.
func (c *cli) guard() error {
	if route, ok := c.app.Guard(); !ok {
		return fmt.Errorf("%w (%s)", errNotSignedIn, route)
	}
	return nil
}
