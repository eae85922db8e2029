// Package cofure wires the daily digest bot together: market data, the
// report scheduler, the Telegram transport and the HTTP gateway.
package cofure

import (
	"context"
	"fmt"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/cofure/cofure/pkg/core"
	"github.com/cofure/cofure/pkg/exchange/binance"
	"github.com/cofure/cofure/pkg/logger"
	"github.com/cofure/cofure/pkg/macro"
	"github.com/cofure/cofure/pkg/notification"
	"github.com/cofure/cofure/pkg/report"
	"github.com/cofure/cofure/pkg/scheduler"
	"github.com/cofure/cofure/pkg/signal"
	"github.com/cofure/cofure/pkg/storage"
	"github.com/cofure/cofure/pkg/web"
)

const shutdownTimeout = 10 * time.Second

// Transport is the bot platform connection: outbound delivery plus the
// lifecycle of the inbound update stream.
type Transport interface {
	core.Notifier
	Start()
	Stop()
	RegisterWebhook(publicURL string) error
	ProcessUpdate(u tb.Update)
}

// Cofure is the assembled application.
type Cofure struct {
	settings  *core.Settings
	log       logger.Logger
	loc       *time.Location
	directory *core.Directory

	market    core.MarketService
	transport Transport
	storage   core.StateStorage
	scheduler *scheduler.Scheduler
	server    *web.Server
	calendar  *macro.Calendar
	signals   *signal.Engine

	clock scheduler.Clock
}

// New assembles the bot from settings, resolving every dependency that was
// not injected through an option.
func New(settings *core.Settings, options ...Option) (*Cofure, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}

	directory, err := core.NewDirectory(settings.Telegram.Recipients)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient directory: %w", err)
	}

	c := &Cofure{
		settings:  settings,
		log:       DefaultLog,
		loc:       loc,
		directory: directory,
		calendar:  macro.NewCalendar(),
	}

	for _, option := range options {
		option(c)
	}

	if err := c.initStorage(); err != nil {
		return nil, err
	}

	if err := c.initMarket(); err != nil {
		return nil, err
	}

	if err := c.initTransport(); err != nil {
		return nil, err
	}

	schedulerOptions := []scheduler.Option{}
	if c.clock != nil {
		schedulerOptions = append(schedulerOptions, scheduler.WithClock(c.clock))
	}
	c.scheduler = scheduler.New(loc, c.log, schedulerOptions...)

	var processor web.UpdateProcessor
	if settings.Telegram.Mode == core.ModeWebhook {
		processor = c.transport
	}
	c.server = web.New(settings.Web.Port, settings.Telegram.Token, processor, c.log)

	if settings.Signals.Enabled {
		c.signals = signal.NewEngine(
			c.market, c.storage, c.transport, c.log,
			settings.Signals, settings.Binance.MinQuoteVolume,
		)
	}

	return c, nil
}

func (c *Cofure) initStorage() error {
	if c.storage != nil {
		return nil
	}

	var err error
	switch c.settings.State.Backend {
	case "sqlite":
		c.storage, err = storage.FromSQLite(c.settings.State.Path)
	default:
		if c.settings.State.Path == ":memory:" {
			c.storage, err = storage.FromMemory()
		} else {
			c.storage, err = storage.FromFile(c.settings.State.Path)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to open state storage: %w", err)
	}

	return nil
}

func (c *Cofure) initMarket() error {
	if c.market != nil {
		return nil
	}

	market, err := binance.NewFutures(c.log,
		binance.WithCredentials(c.settings.Binance.APIKey, c.settings.Binance.APISecret),
		binance.WithSelectionPolicy(c.settings.Report.Policy),
	)
	if err != nil {
		return err
	}

	c.market = market
	return nil
}

func (c *Cofure) initTransport() error {
	if c.transport != nil {
		return nil
	}

	transport, err := notification.NewTelegram(c.directory, c.settings.Telegram, c.loc)
	if err != nil {
		return err
	}

	c.transport = transport
	return nil
}

// Run starts the transport, the HTTP gateway and the scheduled jobs, then
// blocks until ctx is cancelled.
func (c *Cofure) Run(ctx context.Context) error {
	switch c.settings.Telegram.Mode {
	case core.ModePolling:
		c.transport.Start()
		defer c.transport.Stop()
	case core.ModeWebhook:
		url := fmt.Sprintf("%s/bot%s", c.settings.Telegram.WebhookBaseURL, c.settings.Telegram.Token)
		if err := c.transport.RegisterWebhook(url); err != nil {
			return err
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- c.server.Start()
	}()

	c.scheduler.Daily(ctx, "morning-report", c.settings.Report.Hour, c.settings.Report.Minute, c.RunMorningReport)

	if c.settings.Macro.Enabled {
		c.scheduler.Daily(ctx, "macro-calendar", c.settings.Macro.Hour, c.settings.Macro.Minute, c.RunMacroCalendar)
	}

	if c.settings.Summary.Enabled {
		c.scheduler.Daily(ctx, "night-summary", c.settings.Summary.Hour, c.settings.Summary.Minute, c.RunNightSummary)
	}

	if c.settings.Signals.Enabled {
		c.scheduler.Every(ctx, "signal-scan",
			c.settings.Signals.Interval,
			c.settings.Signals.WorkStart, c.settings.Signals.WorkEnd,
			c.signals.Run,
		)
	}

	c.log.WithFields(map[string]any{
		"mode":       c.settings.Telegram.Mode,
		"timezone":   c.settings.Timezone,
		"recipients": c.directory.Len(),
	}).Info("cofure started")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := c.server.Shutdown(shutdownCtx); err != nil {
		c.log.WithError(err).Error("http gateway shutdown failed")
	}

	c.scheduler.Wait()

	if err := c.storage.Close(); err != nil {
		c.log.WithError(err).Error("failed to close state storage")
	}

	return nil
}

// RunMorningReport executes one digest cycle: fetch, format per recipient,
// fan out. Any fetch or shape error aborts the cycle before delivery; the
// error is logged and the process keeps running.
func (c *Cofure) RunMorningReport(ctx context.Context) {
	snapshot, err := c.market.Snapshot(ctx, c.settings.Report.Size)
	if err != nil {
		c.log.WithError(err).Error("digest cycle aborted, snapshot unavailable")
		return
	}

	now := c.now()
	batches := make(map[string][]string, c.directory.Len())
	for _, recipient := range c.directory.All() {
		batches[recipient.ID] = report.Format(snapshot, recipient, now)
	}

	result := c.transport.DeliverAll(batches)

	if result.Succeeded > 0 {
		if _, err := c.storage.IncrCounter(core.CounterDigests, result.Succeeded); err != nil {
			c.log.WithError(err).Error("failed to bump digest counter")
		}
	}

	c.log.WithFields(map[string]any{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("digest cycle finished")
}

// RunMacroCalendar broadcasts the day's macro event briefing.
func (c *Cofure) RunMacroCalendar(_ context.Context) {
	c.transport.Notify(c.calendar.BuildDaily(c.now()))
}

// RunNightSummary broadcasts the day counters and resets the day state.
func (c *Cofure) RunNightSummary(_ context.Context) {
	digests, err := c.storage.Counter(core.CounterDigests)
	if err != nil {
		c.log.WithError(err).Error("night summary aborted, counters unavailable")
		return
	}

	signals, err := c.storage.Counter(core.CounterSignals)
	if err != nil {
		c.log.WithError(err).Error("night summary aborted, counters unavailable")
		return
	}

	c.transport.Notify(fmt.Sprintf(
		"🌙 Tổng kết ngày %s\n"+
			"📨 Bản tin đã gửi: %d\n"+
			"📢 Tín hiệu đã phát: %d\n"+
			"😴 Bot nghỉ đêm nay, hẹn gặp lại vào sáng mai nhé!",
		c.now().Format("02/01/2006"), digests, signals,
	))

	if err := c.storage.Reset(); err != nil {
		c.log.WithError(err).Error("failed to reset day state")
	}
}

func (c *Cofure) now() time.Time {
	if c.clock != nil {
		return c.clock.Now().In(c.loc)
	}
	return time.Now().In(c.loc)
}
