package cofure

import (
	"github.com/cofure/cofure/pkg/core"
	"github.com/cofure/cofure/pkg/logger"
	"github.com/cofure/cofure/pkg/macro"
	"github.com/cofure/cofure/pkg/scheduler"
)

// Option is a functional option for configuring a Cofure instance
type Option func(*Cofure)

// WithLogger replaces the default logger
func WithLogger(log logger.Logger) Option {
	return func(c *Cofure) {
		c.log = log
	}
}

// WithStorage sets the day-state storage, by default resolved from the
// state settings
func WithStorage(storage core.StateStorage) Option {
	return func(c *Cofure) {
		c.storage = storage
	}
}

// WithMarketService replaces the exchange-backed market data source
func WithMarketService(market core.MarketService) Option {
	return func(c *Cofure) {
		c.market = market
	}
}

// WithTransport replaces the Telegram transport
func WithTransport(transport Transport) Option {
	return func(c *Cofure) {
		c.transport = transport
	}
}

// WithCalendar replaces the macro event source
func WithCalendar(calendar *macro.Calendar) Option {
	return func(c *Cofure) {
		c.calendar = calendar
	}
}

// WithClock replaces the scheduler clock
func WithClock(clock scheduler.Clock) Option {
	return func(c *Cofure) {
		c.clock = clock
	}
}
