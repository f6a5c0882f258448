// Command dreamplan turns goals into day-by-day roadmaps and tracks the
// daily tasks derived from them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dreamplan/internal/config"
	"dreamplan/internal/logging"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags and the lazily opened app.
type rootOptions struct {
	configPath string
	user       string
	verbose    bool
	timeout    time.Duration

	cfg *config.Config
	app *app
}

// newRootCmd builds the command tree. The caller must call close on the
// returned options after Execute, whatever its outcome.
func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "dreamplan",
		Short: "Plan goals day by day and track your progress",
		Long: `dreamplan breaks a goal into a day-by-day roadmap and hands you a
short list of concrete tasks for each day.

Roadmaps and tasks are generated by the configured LLM provider. Without
credentials a deterministic planner is used instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.verbose {
				cfg.Logging.Level = "debug"
			}
			if err := logging.Initialize(cfg.Logging.ToLogging()); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", opts.configPath, err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	defaultUser := os.Getenv("DREAMPLAN_USER")
	if defaultUser == "" {
		defaultUser = "local"
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "Config file")
	flags.StringVarP(&opts.user, "user", "u", defaultUser, "Owner id for goals (or set DREAMPLAN_USER)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Operation timeout")

	root.AddCommand(
		newGoalCmd(opts),
		newTasksCmd(opts),
		newToggleCmd(opts),
		newRoadmapCmd(opts),
		newSuggestCmd(opts),
		newProfileCmd(opts),
		newTodayCmd(opts),
		newUsageCmd(opts),
	)
	return root, opts
}

// open returns the wired app, opening it on first use.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	if o.app != nil {
		return o.app, nil
	}
	if o.cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	a, err := openApp(ctx, o.cfg)
	if err != nil {
		return nil, err
	}
	o.app = a
	return a, nil
}

func (o *rootOptions) close() {
	if o.app != nil {
		o.app.Close()
		o.app = nil
	}
	logging.Sync()
}

// withTimeout returns a command context bounded by --timeout.
func (o *rootOptions) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, o.timeout)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, opts := newRootCmd()
	err := root.ExecuteContext(ctx)
	opts.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}
