package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/riskibarqy/propboard/internal/app"
	"github.com/riskibarqy/propboard/internal/config"
	"github.com/riskibarqy/propboard/internal/domain/team"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"github.com/riskibarqy/propboard/internal/usecase"
	"github.com/spf13/cobra"
)

// Aggregator is the slice of the aggregation service the CLI drives.
type Aggregator interface {
	AggregateSports(ctx context.Context, sports []string) ([]usecase.AggregateResult, error)
}

// Option replaces a dependency that is otherwise built from the environment.
type Option func(*runtime)

func WithConfig(cfg config.Config) Option {
	return func(r *runtime) {
		r.cfg = cfg
		r.configured = true
	}
}

func WithAggregator(agg Aggregator) Option {
	return func(r *runtime) { r.aggregator = agg }
}

func WithResolver(resolver *team.Resolver) Option {
	return func(r *runtime) { r.resolver = resolver }
}

type runtime struct {
	cfg        config.Config
	configured bool
	logLevel   string
	logger     *logging.Logger
	aggregator Aggregator
	resolver   *team.Resolver
	engine     *app.Engine
}

// aggregatorFor builds the engine on first use so commands that only need
// the team table never open provider clients or the archive.
func (r *runtime) aggregatorFor(ctx context.Context) (Aggregator, error) {
	if r.aggregator != nil {
		return r.aggregator, nil
	}
	engine, err := app.NewEngine(ctx, r.cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.engine = engine
	r.aggregator = engine.Service
	return r.aggregator, nil
}

func (r *runtime) teams() (*team.Resolver, error) {
	if r.resolver != nil {
		return r.resolver, nil
	}
	resolver, err := app.LoadResolver(r.cfg)
	if err != nil {
		return nil, err
	}
	r.resolver = resolver
	return resolver, nil
}

func (r *runtime) close() error {
	if r.logger != nil {
		_ = r.logger.Sync()
	}
	return r.engine.Close()
}

// NewRootCommand assembles propsctl. Logs go to stderr so stdout stays
// machine-readable.
func NewRootCommand(opts ...Option) *cobra.Command {
	rt := &runtime{}
	for _, opt := range opts {
		opt(rt)
	}

	root := &cobra.Command{
		Use:           "propsctl",
		Short:         "Aggregate and tier player props from the configured providers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !rt.configured {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				rt.cfg = cfg
				rt.configured = true
			}
			level := rt.cfg.LogLevel
			if rt.logLevel != "" {
				level = logging.ParseLevel(rt.logLevel)
			}
			rt.logger = logging.New(logging.Config{
				Level:   level,
				Service: "propsctl",
				Version: rt.cfg.ServiceVersion,
				Output:  cmd.ErrOrStderr(),
			})
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return rt.close()
		},
	}
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "Override APP_LOG_LEVEL")

	root.AddCommand(newAggregateCommand(rt))
	root.AddCommand(newTeamsCommand(rt))
	return root
}

// Execute runs propsctl and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
