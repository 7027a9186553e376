// Package pkg holds small utilities shared by every component:
// environment-driven configuration loading and the multi-app launcher
// used to run an HTTP surface and background workers out of one
// process.
package pkg

import (
	"sync"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
)

// App is anything a Launcher can run: an HTTP server, a worker pool, a
// consumer loop. Run blocks until the app stops or l's context is
// cancelled.
type App interface {
	Run(l *Launcher) error
}

// Launcher runs a named set of Apps concurrently and waits for all of
// them to return.
type Launcher struct {
	Logger mlog.Logger

	apps map[string]App
	wg   *sync.WaitGroup
}

// NewLauncher builds a Launcher, applying opts in order.
func NewLauncher(opts ...func(*Launcher)) *Launcher {
	l := &Launcher{
		Logger: &mlog.NoneLogger{},
		apps:   make(map[string]App),
		wg:     &sync.WaitGroup{},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// WithLogger is a Launcher option setting the logger apps report
// through.
func WithLogger(logger mlog.Logger) func(*Launcher) {
	return func(l *Launcher) {
		l.Logger = logger
	}
}

// Add registers app under name. A later Add with the same name replaces
// the earlier one.
func (l *Launcher) Add(name string, app App) {
	if l.apps == nil {
		l.apps = make(map[string]App)
	}

	l.apps[name] = app
}

// Run starts every registered app in its own goroutine and blocks until
// all of them have returned.
func (l *Launcher) Run() {
	if l.wg == nil {
		l.wg = &sync.WaitGroup{}
	}

	l.Logger.Infof("Starting %d app(s)\n", len(l.apps))

	for name, app := range l.apps {
		l.Logger.Info("--")
		l.wg.Add(1)

		go func(name string, app App) {
			defer l.wg.Done()

			l.Logger.Infof("Launcher: App [33m(%s)[0m starting\n", name)

			if err := app.Run(l); err != nil {
				l.Logger.Errorf("Launcher: App (%s) stopped with error: %v\n", name, err)
			}

			l.Logger.Infof("Launcher: App (%s) finished\n", name)
		}(name, app)
	}

	l.wg.Wait()

	l.Logger.Info("Launcher: Terminated")
}

// RunApp is a Launcher option registering app under name, for building
// a launcher inline: NewLauncher(WithLogger(l), RunApp("api", server)).
func RunApp(name string, app App) func(*Launcher) {
	return func(l *Launcher) {
		l.Add(name, app)
	}
}
