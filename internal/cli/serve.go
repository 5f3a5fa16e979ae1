package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/soyeahso/switchboard/internal/agent"
	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/flow"
	"github.com/soyeahso/switchboard/internal/gateway"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/ivr"
	"github.com/soyeahso/switchboard/internal/llm"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/metrics"
	"github.com/soyeahso/switchboard/internal/notify"
	"github.com/soyeahso/switchboard/internal/plugin"
	"github.com/soyeahso/switchboard/internal/ratelimit"
	"github.com/soyeahso/switchboard/internal/store"
	"github.com/soyeahso/switchboard/internal/templates"
	"github.com/spf13/cobra"
)

// writeQueueSize bounds deferred conversation writes across all calls.
const writeQueueSize = 256

// sessionSweepEvery is how often idle menu sessions are evicted.
const sessionSweepEvery = time.Minute

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook and conversation stream server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if logLevel == "" {
				log = logging.NewStyled(cfg.Logging.ConsoleStyle, cfg.Logging.Level)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	hookMgr := hooks.NewManager(log)

	plugins := plugin.NewRegistry(hookMgr, log)
	if err := plugins.Register(notify.NewAudit()); err != nil {
		return err
	}
	if s := cfg.Notify.Slack; s != nil {
		notifier, err := notify.NewSlack(notify.SlackOpts{Token: s.Token, ChannelID: s.Channel}, log)
		if err != nil {
			return fmt.Errorf("slack notifier: %w", err)
		}
		if err := plugins.Register(notifier); err != nil {
			return err
		}
	}
	if err := plugins.InitAll(ctx); err != nil {
		return fmt.Errorf("initializing plugins: %w", err)
	}
	defer plugins.CloseAll()
	defer hookMgr.Wait()

	m := metrics.New(cfg.Metrics.Namespace)

	registry, err := llm.NewRegistryFromConfig(ctx, cfg.Generative, log)
	if err != nil {
		return fmt.Errorf("generative provider: %w", err)
	}
	primary := cfg.Generative.Model
	if primary == "" {
		primary = cfg.Generative.Provider
	}
	client := llm.NewFailoverClient(registry, primary, cfg.Generative.Fallbacks, log)
	log.Info().Strs("providers", registry.List()).Str("model", primary).Msg("generative providers available")

	renderer := templates.New(cfg.Templates.MaxValueChars, cfg.Templates.MaxLengthChars)
	for name, v := range renderer.CheckCatalogue() {
		if !v.Valid {
			log.Warn().Str("template", name).Strs("errors", v.Errors).Msg("catalogue template invalid")
		}
	}

	writer := store.NewWriter(writeQueueSize, log)
	defer writer.Close()

	driver := agent.NewDriver(driverConfig(cfg), client, st, writer, renderer, log,
		agent.WithHooks(hookMgr),
		agent.WithMetrics(m),
	)

	markup := templates.NewMarkup(publicBaseURL(cfg), renderer,
		templates.WithVoice(cfg.Telephony.Voice),
		templates.WithLanguage(cfg.Telephony.Language),
		templates.WithGatherTimeout(cfg.IVR.GatherTimeoutSeconds),
	)
	machine := ivr.New(markup, renderer, st, ivr.NewDirectory(st, cfg.Telephony), log,
		ivr.WithHooks(hookMgr),
		ivr.WithMetrics(m),
		ivr.WithMaxRetries(cfg.IVR.MaxRetries),
	)

	sched := cron.New()
	if _, err := machine.Sessions().Schedule(sched, sessionSweepEvery, cfg.IVR.SessionIdle()); err != nil {
		return fmt.Errorf("scheduling session sweep: %w", err)
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg.RateLimit, sched)
	if err != nil {
		return err
	}
	defer closeLimiter()

	sched.Start()
	defer sched.Stop()

	srv := gateway.New(cfg, machine, log,
		gateway.WithHooks(hookMgr),
		gateway.WithMetrics(m),
		gateway.WithLimiter(limiter),
		gateway.WithDriver(driver),
	)
	return srv.Start(ctx)
}

// openStore opens the configured datastore.
func openStore(cfg config.Config) (store.Store, error) {
	if cfg.Store.Driver == "memory" {
		log.Info().Msg("using in-memory store")
		return store.NewMemory(), nil
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		if err := paths.EnsureDirs(); err != nil {
			return nil, err
		}
		dbPath = paths.DatabasePath()
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info().Str("path", dbPath).Msg("using SQLite store")
	return db, nil
}

// newLimiter builds the webhook rate limiter. The in-memory limiter
// registers its sweep on sched; redis keys expire on their own.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, sched *cron.Cron) (ratelimit.Limiter, func() error, error) {
	if cfg.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis rate limiter")
		return ratelimit.NewRedis(rdb, cfg.Redis.Prefix, cfg.MaxRequests, cfg.Window(), log), rdb.Close, nil
	}

	mem := ratelimit.NewMemory(cfg.MaxRequests, cfg.Window())
	if _, err := mem.Schedule(sched, cfg.SweepInterval()); err != nil {
		return nil, nil, fmt.Errorf("scheduling limiter sweep: %w", err)
	}
	return mem, func() error { return nil }, nil
}

func driverConfig(cfg config.Config) agent.Config {
	dc := agent.DefaultConfig()
	dc.Model = cfg.Generative.Model
	dc.MaxTokens = cfg.Generative.MaxTokens
	dc.Temperature = cfg.Generative.Temperature
	dc.HistoryTurns = cfg.Generative.HistoryTurns
	dc.GenerationTimeout = cfg.Generative.Timeout()
	dc.MaxReplyChars = cfg.Templates.MaxReplyChars
	dc.ConfirmMinimum = cfg.Flow.ConfirmMinimum
	dc.Thresholds = flow.Thresholds{
		GatherBelow: cfg.Flow.GatherBelow,
		ConfirmAt:   cfg.Flow.ConfirmAt,
	}
	return dc
}

// publicBaseURL is the origin the provider is told to call back on.
func publicBaseURL(cfg config.Config) string {
	if cfg.Gateway.PublicBaseURL != "" {
		return cfg.Gateway.PublicBaseURL
	}
	scheme := "http"
	if cfg.Gateway.TLS.Enabled {
		scheme = "https"
	}
	host := "127.0.0.1"
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost != "" {
		host = cfg.Gateway.CustomBindHost
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, cfg.Gateway.Port)
}
