package server

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// ShutdownFlag is the read side of the process-wide shutdown signal
type ShutdownFlag interface {
	ShuttingDown() bool
}

// Coordinator turns an interrupt into a one-way shutdown flag. Trigger is the
// only writer; everything else reads through ShuttingDown or Done.
type Coordinator struct {
	flag    atomic.Bool
	once    sync.Once
	done    chan struct{}
	signals chan os.Signal
	stop    chan struct{}
	stopped sync.Once
	logger  *slog.Logger
}

// NewCoordinator creates a coordinator with the flag unset
func NewCoordinator(logger *slog.Logger) *Coordinator {
	return &Coordinator{
		done:    make(chan struct{}),
		signals: make(chan os.Signal, 1),
		stop:    make(chan struct{}),
		logger:  logger,
	}
}

// Listen installs the interrupt handler. The first interrupt triggers
// shutdown; the handler is removed afterwards so a second interrupt gets the
// default behaviour and kills the process.
func (c *Coordinator) Listen() {
	signal.Notify(c.signals, os.Interrupt)

	go func() {
		defer signal.Stop(c.signals)
		select {
		case sig := <-c.signals:
			c.logger.Info("received shutdown signal", "signal", sig.String())
			c.Trigger()
		case <-c.stop:
		}
	}()
}

// Trigger sets the flag. It reports whether this call was the one that set it.
func (c *Coordinator) Trigger() bool {
	triggered := false
	c.once.Do(func() {
		c.flag.Store(true)
		close(c.done)
		triggered = true
	})
	return triggered
}

// ShuttingDown reports whether shutdown has been triggered
func (c *Coordinator) ShuttingDown() bool {
	return c.flag.Load()
}

// Done is closed once shutdown has been triggered
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Stop removes the interrupt handler without triggering shutdown
func (c *Coordinator) Stop() {
	c.stopped.Do(func() {
		close(c.stop)
	})
}
