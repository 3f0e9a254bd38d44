package main

import (
	"context"

	"github.com/sells-group/bioma-cli/internal/match"
	"github.com/sells-group/bioma-cli/internal/notify"
	"github.com/sells-group/bioma-cli/internal/scoring"
	"github.com/sells-group/bioma-cli/internal/store"
	"github.com/sells-group/bioma-cli/internal/watchlist"
)

// env bundles the wired subsystems shared by most commands.
type env struct {
	store    store.Store
	matcher  *match.Matcher
	engine   *scoring.Engine
	notifier notify.Notifier
	manager  *watchlist.Manager
}

// openEnv validates config, opens the store, and wires the scoring
// engine, matcher, and watchlist manager.
func openEnv(ctx context.Context) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	matcher := match.New(st, cfg.Matcher)

	engine, err := scoring.NewEngine(st, st, st, matcher, cfg.Scoring, cfg.Batch)
	if err != nil {
		st.Close()
		return nil, err
	}

	notifier := notify.NewWebhook(cfg.Notify)

	manager, err := watchlist.NewManager(st, notifier, cfg.Watchlist, cfg.Batch.MaxConcurrentCompanies)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &env{
		store:    st,
		matcher:  matcher,
		engine:   engine,
		notifier: notifier,
		manager:  manager,
	}, nil
}

func (e *env) Close() {
	e.store.Close()
}
