package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/keepalive"
	"remindbot/internal/reminder"
	"remindbot/internal/router"
	"remindbot/internal/store"
	"remindbot/internal/transport"
	"remindbot/internal/transport/telegram"
	"remindbot/pkg/logx"
)

// defaultTimezone matches the deployment the bot was written for; override
// via reminders.timezone.
const defaultTimezone = "Asia/Jerusalem"

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	gw    *telegram.Adapter
	st    store.Store
	sched *reminder.Scheduler
	rt    *router.Router
	keep  *keepalive.Service

	updates    chan transport.Update
	sweepEvery time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	loc, err := loadTimezone(cfg.Reminders.Timezone)
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault(
		"telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	sweepEvery, err := config.ParseDurationOrDefault(
		"reminders.sweep_interval", cfg.Reminders.SweepInterval, time.Hour)
	if err != nil {
		return nil, err
	}

	gw, err := telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    pollTimeout,
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	storePath := cfg.Storage.Path
	if strings.TrimSpace(storePath) == "" {
		storePath = "./reminders.json"
	}
	st, err := store.Open(store.Config{
		Driver: cfg.Storage.Driver,
		Path:   storePath,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sched := reminder.New(st, loc, log.With(logx.String("comp", "scheduler")))

	updates := make(chan transport.Update, 256)
	rt := router.New(gw, sched, updates, log.With(logx.String("comp", "router")))

	keep := keepalive.New(keepalive.Config{
		Enabled: cfg.Keepalive.Enabled,
		Addr:    cfg.Keepalive.Addr,
	}, sched, log.With(logx.String("comp", "keepalive")))

	return &App{
		cfgm:       cfgm,
		logs:       logs,
		log:        log,
		gw:         gw,
		st:         st,
		sched:      sched,
		rt:         rt,
		keep:       keep,
		updates:    updates,
		sweepEvery: sweepEvery,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := config.ParseDurationOrDefault(
			"telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second); err != nil {
			return err
		}
		if _, err := config.ParseDurationOrDefault(
			"reminders.sweep_interval", cfg.Reminders.SweepInterval, time.Hour); err != nil {
			return err
		}
		if _, err := loadTimezone(cfg.Reminders.Timezone); err != nil {
			return err
		}
		return nil
	})

	// Load the snapshot and re-arm surviving timers before any inbound
	// event can mutate state.
	if err := a.sched.Restore(); err != nil {
		a.log.Warn("continuing with empty reminder state", logx.Err(err))
	}
	a.sched.Start(runCtx, a.sweepEvery)

	if err := a.gw.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}

	if a.keep.Enabled() {
		if err := a.keep.Start(runCtx); err != nil {
			a.log.Warn("keepalive start failed", logx.Err(err))
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.rt.Run(runCtx); err != nil {
			a.log.Error("event loop exited", logx.Err(err))
		}
	}()

	// Hot reload: only logging changes apply live; transport/storage/
	// timezone changes need a restart.
	sub := a.cfgm.Subscribe(4)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("config reloaded (logging applied)")
			}
		}
	}()
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	// Run each shutdown piece with an upper bound so one component can't
	// stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
	}

	step("telegram", 2*time.Second, a.gw.Stop)
	step("keepalive", time.Second, a.keep.Stop)
	step("scheduler", 2*time.Second, func(c context.Context) error {
		a.sched.Stop(c)
		return nil
	})

	waited := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		a.log.Warn("background goroutines still running at shutdown")
	}

	if err := a.st.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

func loadTimezone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("reminders.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}
