package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Thorwig/sovy-merchant/internal/api"
	"github.com/Thorwig/sovy-merchant/internal/audit"
	"github.com/Thorwig/sovy-merchant/internal/cache"
	"github.com/Thorwig/sovy-merchant/internal/config"
	"github.com/Thorwig/sovy-merchant/internal/logger"
	"github.com/Thorwig/sovy-merchant/internal/orders"
	"github.com/Thorwig/sovy-merchant/internal/session"
)

type app struct {
	cfg      *config.Config
	log      *slog.Logger
	sess     *session.Manager
	client   *api.Client
	cache    *cache.Cache
	store    *orders.Store
	activity *audit.Pool

	stopActivity context.CancelFunc
}

func newApp() (*app, error) {
	cfg := config.LoadConfig()
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	sess, err := session.NewManager(cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, sess, log)
	client.OnUnauthorized(func() {
		fmt.Fprintln(os.Stderr, "session expired, please log in again")
	})

	c := cache.New()
	store := orders.NewStore(client, c, log, cfg.PickupClearDelay)

	activity := audit.NewPool(
		audit.PoolConfig{BatchSize: 8, ChannelSize: 64},
		log,
		&audit.FileProcessor{Path: cfg.AuditLogFile},
	)
	ctx, cancel := context.WithCancel(context.Background())
	activity.Start(ctx, 1)

	return &app{
		cfg:          cfg,
		log:          log,
		sess:         sess,
		client:       client,
		cache:        c,
		store:        store,
		activity:     activity,
		stopActivity: cancel,
	}, nil
}

func (a *app) shutdown() {
	a.activity.Shutdown(a.stopActivity)
}

// execute runs one console invocation and always flushes the activity pool,
// success or not, before reporting the exit code.
func (a *app) execute(args []string) int {
	defer a.shutdown()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func main() {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(a.execute(os.Args[1:]))
}
