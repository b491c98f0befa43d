package ui

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tartampluch/go-addressbook/internal/config"
	"github.com/tartampluch/go-addressbook/internal/engine"
	"github.com/tartampluch/go-addressbook/internal/i18n"
	"golang.org/x/sync/errgroup"
)

// FeedPublisher receives the rendered feeds. *server.FeedServer implements it.
type FeedPublisher interface {
	Update(route string, data []byte) error
}

// peopleFeed is the JSON document served on the people route.
type peopleFeed struct {
	Mode  engine.SortMode `json:"sort"`
	Stale bool            `json:"stale"`
	Items []engine.Person `json:"items"`
}

// App drives the pipeline in the background and mirrors its snapshots into the feeds.
type App struct {
	Pipeline *engine.Pipeline
	Feeds    FeedPublisher
	Tr       *i18n.Translator
	Clock    engine.Clock

	Interval        time.Duration
	ReminderTrigger string
}

// NewApp wires the collaborators using the refresh interval and reminder of s.
func NewApp(p *engine.Pipeline, feeds FeedPublisher, tr *i18n.Translator, s config.Settings) *App {
	return &App{
		Pipeline:        p,
		Feeds:           feeds,
		Tr:              tr,
		Clock:           p.Clock,
		Interval:        s.RefreshInterval(),
		ReminderTrigger: s.ReminderTrigger,
	}
}

// Run refreshes immediately, then every Interval, until ctx is cancelled.
// It consumes the pipeline's Updates channel.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.mirror(ctx)
		return nil
	})
	g.Go(func() error {
		a.backgroundWorker(ctx)
		return nil
	})
	return g.Wait()
}

// backgroundWorker manages the periodic refresh schedule.
func (a *App) backgroundWorker(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	a.Pipeline.Refresh(ctx)

	interval := a.Interval
	if interval <= 0 {
		interval = config.DefaultRefreshMin * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, interval)

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return
		case <-ticker.C:
			a.Pipeline.Refresh(ctx)
		}
	}
}

func (a *App) mirror(ctx context.Context) {
	updates := a.Pipeline.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			a.Publish(snap)
		}
	}
}

// Publish renders snap into the calendar and people feeds.
// States without displayable data leave the feeds untouched.
func (a *App) Publish(snap engine.Snapshot) {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	people, ok := engine.Displayable[[]engine.Person](snap.State)
	if !ok {
		return
	}
	_, stale := snap.State.(engine.Failed[[]engine.Person])

	ics, err := engine.BirthdayCalendar(people, a.Clock.Now(), engine.CalendarOptions{
		ReminderTrigger: a.ReminderTrigger,
		FormatSummary:   a.Tr.EventSummary,
	})
	if err != nil {
		log.Warn(config.MsgFeedSkipped, config.LogKeyRoute, config.RouteCalendar, config.LogKeyError, err)
	} else if err := a.Feeds.Update(config.RouteCalendar, ics); err != nil {
		log.Error(config.MsgFeedSkipped, config.LogKeyRoute, config.RouteCalendar, config.LogKeyError, err)
	}

	if people == nil {
		people = []engine.Person{}
	}
	doc, err := json.Marshal(peopleFeed{Mode: snap.Mode, Stale: stale, Items: people})
	if err != nil {
		log.Error(config.MsgFeedSkipped, config.LogKeyRoute, config.RoutePeople, config.LogKeyError, err)
		return
	}
	if err := a.Feeds.Update(config.RoutePeople, doc); err != nil {
		log.Error(config.MsgFeedSkipped, config.LogKeyRoute, config.RoutePeople, config.LogKeyError, err)
		return
	}

	log.Debug(config.MsgFeedsPublished,
		config.LogKeyCount, len(people),
		config.LogKeySort, string(snap.Mode),
		config.LogKeyStale, stale)
}
