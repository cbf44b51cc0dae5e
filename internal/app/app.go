package app

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

//go:generate mockgen -destination=./app_mock.go -package=app -source=app.go

// Dependency is the interface that wraps the basic methods of a dependency required for the application.
type Dependency interface {
	// Start is anything a dependency needs to do before it's ready to be used
	Start() error
	// Stop is anything a dependency needs to do before it's ready to be stopped
	Stop() error
	// Name is the name of the dependency. It is used for logging and identification purposes, only.
	Name() string
}

// Operation is the single unit of work an invocation performs once its dependencies are up.
type Operation func(ctx context.Context) error

type App struct {
	serviceName string
	// deps are started in order and stopped in reverse.
	deps []Dependency
	// osSignalChan receives the first interrupt and cancels the running operation.
	osSignalChan chan os.Signal
	// runCalled allows Run to be called once
	runCalled *atomic.Bool
}

type Config struct {
	ServiceName string
}

func (c *Config) validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	return errors.Join(errs...)
}

// CreateApp creates a new application with the provided dependencies.
func CreateApp(cfg *Config, deps ...Dependency) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &App{
		serviceName:  cfg.ServiceName,
		deps:         deps,
		runCalled:    &atomic.Bool{},
		osSignalChan: make(chan os.Signal, 1), // first signal we get cancels the operation
	}, nil
}

// Run starts every dependency, runs op and then stops whatever was started, on every path.
// The context handed to op is cancelled by SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context, op Operation) (err error) {
	if a.runCalled.Swap(true) {
		return errors.New("run has already been called")
	}

	started := 0
	defer func() {
		if stopErr := a.stop(started); stopErr != nil {
			log.Error().Msg("Error stopping application: " + stopErr.Error())
			err = errors.Join(err, stopErr)
		}
	}()

	for _, dep := range a.deps {
		log.Debug().Msg("Starting dependency: " + dep.Name())
		if startErr := a.start(dep); startErr != nil {
			return startErr
		}
		started++
	}

	ctxCancel, cancel := context.WithCancel(ctx)
	defer cancel()

	signal.Notify(a.osSignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(a.osSignalChan)
	go func() {
		select {
		case sig := <-a.osSignalChan:
			log.Warn().Msg("OS Signal received: " + sig.String() + " cancelling " + a.serviceName)
			cancel()
		case <-ctxCancel.Done():
		}
	}()

	start := time.Now()
	err = op(ctxCancel)
	log.Debug().Str("duration", time.Since(start).String()).Msg(a.serviceName + " finished")
	return err
}

// start runs dep.Start, turning a panic into an error.
func (a *App) start(dep Dependency) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in Start() for dependency %s: %v", dep.Name(), r)
		}
	}()

	if err = dep.Start(); err != nil {
		return fmt.Errorf("failure in Start() for dependency %s: %w", dep.Name(), err)
	}
	return nil
}

// stop stops the first n dependencies in reverse order, collecting every failure.
func (a *App) stop(n int) error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		dep := a.deps[i]
		log.Debug().Msg("Stopping dependency: " + dep.Name())
		if err := dep.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failure in Stop() for dependency %s: %w", dep.Name(), err))
		}
	}
	return errors.Join(errs...)
}
