// ABOUTME: Composition root that builds every service once per process
// ABOUTME: Opens the configured storage backend and wires repository, session, messaging and provider
package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/leadpipe/auth"
	"github.com/harperreed/leadpipe/charm"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/db"
	"github.com/harperreed/leadpipe/logging"
	"github.com/harperreed/leadpipe/messaging"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/provider"
	"github.com/harperreed/leadpipe/schedule"
	"github.com/harperreed/leadpipe/store"
)

// App holds the process-wide services.
type App struct {
	Config    *config.Config
	Log       *logrus.Logger
	Store     *store.Store
	Repo      *crm.Repository
	Session   *auth.Session
	Scheduler *schedule.Scheduler
	Notifier  notify.Notifier
	Messaging *messaging.Simulator
	Provider  *provider.Gateway

	// Charm is set for the charm and badger backends.
	Charm *charm.Client

	closers []io.Closer
}

type options struct {
	clock     clock.Clock
	logger    *logrus.Logger
	notifiers []notify.Notifier
	rand      messaging.Rand
	kv        store.KV
}

type Option func(*options)

// WithClock replaces the wall clock, typically with clock.NewMock().
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithLogger replaces the logger built from config.
func WithLogger(l *logrus.Logger) Option { return func(o *options) { o.logger = l } }

// WithNotifier adds a notification sink next to the log sink.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithRand fixes the simulator's randomness.
func WithRand(r messaging.Rand) Option { return func(o *options) { o.rand = r } }

// WithKV bypasses backend selection and uses kv directly.
func WithKV(kv store.KV) Option { return func(o *options) { o.kv = kv } }

// New builds the application from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	a := &App{Config: cfg}

	if o.logger != nil {
		a.Log = o.logger
	} else {
		logger, closer, err := logging.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up logging: %w", err)
		}
		a.Log = logger
		a.closers = append(a.closers, closer)
	}

	kv := o.kv
	if kv == nil {
		var closer io.Closer
		var err error
		kv, closer, a.Charm, err = OpenKV(cfg)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closer)
	}

	a.Notifier = append(notify.Multi{notify.NewLogNotifier(a.Log)}, o.notifiers...)
	a.Store = store.New(kv, a.Log)
	a.Scheduler = schedule.New(o.clock, a.Log)
	repo, err := crm.New(crm.Options{Store: a.Store, Notifier: a.Notifier, Clock: o.clock, Logger: a.Log})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Repo = repo
	a.Session = auth.NewSession(a.Repo, a.Store)
	a.Messaging = messaging.New(messaging.Options{
		Repo:      a.Repo,
		Scheduler: a.Scheduler,
		Notifier:  a.Notifier,
		Logger:    a.Log,
		Rand:      o.rand,
		Config: messaging.Config{
			SendDelay:       cfg.SendDelay,
			DeliveryDelay:   cfg.DeliveryDelay,
			AutoReplyChance: cfg.AutoReplyChance,
			AutoReplyMin:    cfg.AutoReplyMin,
			AutoReplyMax:    cfg.AutoReplyMax,
		},
	})
	a.Provider = provider.New(provider.Options{
		Repo:         a.Repo,
		Scheduler:    a.Scheduler,
		Notifier:     a.Notifier,
		Logger:       a.Log,
		HTTPClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		RPS:          cfg.ProviderRPS,
		ConnectDelay: cfg.ConnectDelay,
	})

	return a, nil
}

// OpenKV opens the storage backend named by cfg.Backend.
func OpenKV(cfg *config.Config) (store.KV, io.Closer, *charm.Client, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryKV(), nopCloser{}, nil, nil

	case config.BackendSQLite:
		conn, err := db.OpenDatabase(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		kv := db.NewKVStore(conn)
		return kv, kv, nil, nil

	case config.BackendBadger:
		client, err := charm.OpenLocal(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open local store: %w", err)
		}
		return client, client, client, nil

	case config.BackendCharm:
		charmCfg, err := charm.LoadConfig(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load charm config: %w", err)
		}
		if cfg.CharmHost != "" {
			charmCfg.Host = cfg.CharmHost
		}
		client, err := charm.NewClient(charmCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open charm kv: %w", err)
		}
		return client, client, client, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Close flushes the repository and releases the backend.
func (a *App) Close() error {
	var errs []error
	if a.Repo != nil {
		if err := a.Repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
