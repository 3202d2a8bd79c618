// Package broker keeps one headless browser alive for the duration of a
// build and publishes its DevTools address so render jobs can share it.
//
// The broker moves through four states:
//
//	starting -> running -> stopping -> stopped
//
// [Broker.Stop] may be reached from a termination signal, from the browser
// exiting on its own, or from a failed start. Whichever comes first runs the
// cleanup; later calls are no-ops. Cleanup removes the published record
// before closing the browser, so a client never reads an address whose
// process is already gone.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagshot/pkg/endpoint"
	"github.com/matzehuels/diagshot/pkg/errors"
)

// State is a lifecycle state of the broker.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Reason records why the broker stopped. It determines the exit status.
type Reason int

const (
	// ReasonSignal is a requested shutdown.
	ReasonSignal Reason = iota + 1
	// ReasonCrash means the browser exited on its own.
	ReasonCrash
	// ReasonStartup means the browser could not be launched or published.
	ReasonStartup
)

func (r Reason) String() string {
	switch r {
	case ReasonSignal:
		return "signal"
	case ReasonCrash:
		return "crash"
	case ReasonStartup:
		return "startup"
	}
	return "unknown"
}

// ExitCode maps a stop reason to the process exit status.
func (r Reason) ExitCode() int {
	switch r {
	case ReasonSignal:
		return 0
	case ReasonCrash:
		return 1
	}
	return 2
}

// Process is a running browser.
type Process interface {
	// Endpoint returns the DevTools websocket address.
	Endpoint() string
	// Done is closed when the process exits.
	Done() <-chan struct{}
	// Close shuts the browser down. It must be safe to call after exit.
	Close(ctx context.Context) error
}

// Launcher starts browsers.
type Launcher interface {
	Launch(ctx context.Context) (Process, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Process, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context) (Process, error) { return f(ctx) }

// Broker owns one browser process and its endpoint record.
type Broker struct {
	launcher Launcher
	store    endpoint.Store
	logger   *log.Logger

	mu     sync.Mutex
	state  State
	reason Reason
	proc   Process
}

// New creates a broker that publishes through store.
func New(launcher Launcher, store endpoint.Store, logger *log.Logger) *Broker {
	if logger == nil {
		logger = log.Default()
	}
	return &Broker{launcher: launcher, store: store, logger: logger}
}

// State returns the current lifecycle state.
func (b *Broker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Endpoint returns the published address, or "" before Start succeeds.
func (b *Broker) Endpoint() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.proc == nil {
		return ""
	}
	return b.proc.Endpoint()
}

// Start launches the browser and publishes its address. It returns only
// after the record is durable. On failure nothing is left behind: a started
// browser is closed and no record exists.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return errors.New(errors.ErrCodeInternal, "broker already %s", b.state)
	}
	b.state = StateStarting
	b.mu.Unlock()

	proc, err := b.launcher.Launch(ctx)
	if err != nil {
		b.Stop(context.WithoutCancel(ctx), ReasonStartup)
		if errors.GetCode(err) != "" {
			return err
		}
		return errors.Wrap(errors.ErrCodeBrowserLaunch, err, "launch browser")
	}

	b.mu.Lock()
	b.proc = proc
	b.mu.Unlock()

	addr := proc.Endpoint()
	if err := b.store.Publish(ctx, addr); err != nil {
		b.Stop(context.WithoutCancel(ctx), ReasonStartup)
		return errors.Wrap(errors.ErrCodeEndpointWrite, err, "publish endpoint to %s", b.store.Location())
	}

	b.mu.Lock()
	stopped := b.state != StateStarting
	if !stopped {
		b.state = StateRunning
	}
	b.mu.Unlock()
	if stopped {
		// Stop ran while publishing and may have removed the record first.
		b.store.Remove(context.WithoutCancel(ctx))
		return errors.New(errors.ErrCodeInternal, "broker stopped during start")
	}

	b.logger.Info("browser ready", "endpoint", addr, "record", b.store.Location())
	return nil
}

// Wait blocks until ctx is cancelled or the browser exits and reports which
// happened. It does not clean up.
func (b *Broker) Wait(ctx context.Context) Reason {
	b.mu.Lock()
	proc := b.proc
	b.mu.Unlock()
	if proc == nil {
		return ReasonStartup
	}
	select {
	case <-ctx.Done():
		return ReasonSignal
	case <-proc.Done():
		return ReasonCrash
	}
}

// Run starts the broker, waits for a signal or a crash and stops it.
func (b *Broker) Run(ctx context.Context) (Reason, error) {
	if err := b.Start(ctx); err != nil {
		return ReasonStartup, err
	}
	reason := b.Wait(ctx)
	if reason == ReasonCrash {
		b.logger.Error("browser exited unexpectedly")
	} else {
		b.logger.Info("shutting down")
	}
	return b.Stop(context.WithoutCancel(ctx), reason), nil
}

// Stop removes the endpoint record and closes the browser. Only the first
// call does any work; every call returns the reason of that first call.
func (b *Broker) Stop(ctx context.Context, reason Reason) Reason {
	b.mu.Lock()
	switch b.state {
	case StateStopping, StateStopped:
		r := b.reason
		b.mu.Unlock()
		return r
	}
	b.state = StateStopping
	b.reason = reason
	proc := b.proc
	b.mu.Unlock()

	b.cleanup(ctx, proc)
	b.finish(reason)
	return reason
}

func (b *Broker) cleanup(ctx context.Context, proc Process) {
	if err := b.store.Remove(ctx); err != nil {
		b.logger.Warn("remove endpoint record", "record", b.store.Location(), "error", err)
	}
	if proc == nil {
		return
	}
	if err := proc.Close(ctx); err != nil {
		b.logger.Warn("close browser", "error", err)
	}
}

func (b *Broker) finish(reason Reason) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateStopped
	if b.reason == 0 {
		b.reason = reason
	}
}
