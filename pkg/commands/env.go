package commands

import (
	"fmt"
	"log/slog"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/notify"
	"tableflip.dev/nexday/pkg/printers"
	"tableflip.dev/nexday/pkg/scheduler"
	"tableflip.dev/nexday/pkg/store"
)

// env is what every command that touches state needs.
type env struct {
	Service   *app.Service
	Scheduler *scheduler.Scheduler
	Triggers  *scheduler.Triggers
	Format    printers.Format
	Logger    *slog.Logger
}

// load opens the configured database and trigger registry. The caller closes
// the env when done.
func load() (*env, error) {
	f, err := output.Resolved()
	if err != nil {
		return nil, err
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	log := logs.Logger(cfg.LogLevel())
	slog.SetDefault(log)

	p, err := store.Load(cfg)
	if err != nil {
		return nil, err
	}
	triggers, err := scheduler.OpenTriggers(cfg.SchedulePath())
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("open schedule: %w", err)
	}
	sched := scheduler.New(triggers)
	sched.Logger = log

	return &env{
		Service: &app.Service{
			Persistence: p,
			Notifier:    notify.Log{Logger: log},
			Scheduler:   sched,
			Logger:      log,
		},
		Scheduler: sched,
		Triggers:  triggers,
		Format:    f,
		Logger:    log,
	}, nil
}

func (e *env) Close() error {
	return e.Service.Persistence.Close()
}
