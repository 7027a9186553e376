package pkg

import (
	"sync"
	"testing"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"
)

type fakeApp struct {
	ran  chan *Launcher
	fail error
}

func (a *fakeApp) Run(l *Launcher) error {
	if a.ran != nil {
		a.ran <- l
	}

	return a.fail
}

func TestWithLogger(t *testing.T) {
	l := NewLauncher(WithLogger(&mlog.NoneLogger{}))
	if l.Logger == nil {
		t.Fatal("expected logger to be set")
	}
}

func TestRunApp(t *testing.T) {
	l := NewLauncher(RunApp("test app", &fakeApp{}))
	if _, ok := l.apps["test app"]; !ok {
		t.Fatal("expected RunApp option to register the app")
	}
}

func TestLauncher_Add(t *testing.T) {
	l := &Launcher{
		apps: map[string]App{
			"test": nil,
		},
	}
	l.Add("test app", &fakeApp{})

	if _, ok := l.apps["test app"]; !ok {
		t.Fatal("expected app to be registered under name")
	}
}

func TestLauncherRun(t *testing.T) {
	app1 := &fakeApp{ran: make(chan *Launcher, 1)}
	app2 := &fakeApp{ran: make(chan *Launcher, 1)}

	launcherInstance := &Launcher{
		apps: map[string]App{
			"app1": app1,
			"app2": app2,
		},
		Logger: &mlog.NoneLogger{},
		wg:     &sync.WaitGroup{},
	}

	launcherInstance.Run()

	if got := <-app1.ran; got != launcherInstance {
		t.Fatal("expected app1 to receive the launcher instance")
	}

	if got := <-app2.ran; got != launcherInstance {
		t.Fatal("expected app2 to receive the launcher instance")
	}
}

func TestNewLauncher(t *testing.T) {
	t.Log(NewLauncher(func(l *Launcher) {}))
}
