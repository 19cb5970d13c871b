package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_persist/internal/codec"
	"github.com/bassista/go_persist/internal/config"
	"github.com/bassista/go_persist/internal/document"
	"github.com/bassista/go_persist/internal/logger"
	"github.com/bassista/go_persist/internal/persist"
	"github.com/bassista/go_persist/internal/report"
	"github.com/bassista/go_persist/internal/repository"
	"golang.org/x/sync/errgroup"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config   *config.Config
	Doc      *persist.Shared[document.Document]
	Reporter *report.Reporter

	BaseCtx context.Context
	Cancel  context.CancelFunc

	group *errgroup.Group

	mu        sync.Mutex
	loop      *persist.Loop
	restarts  int
	lastError error
	lastFail  time.Time
}

// LoopStatus describes the supervised persistence loop.
type LoopStatus struct {
	ID        string        `json:"id,omitempty"`
	Interval  time.Duration `json:"interval"`
	Running   bool          `json:"running"`
	Restarts  int           `json:"restarts"`
	LastError string        `json:"last_error,omitempty"`
	LastFail  *time.Time    `json:"last_failure,omitempty"`
}

// NewDocument binds a document to the configured data file, using the codec
// implied by data.format or the file extension. With data.rules set, content
// that breaks a rule can be neither loaded nor written.
func NewDocument(cfg config.DataConfig) (*persist.Shared[document.Document], error) {
	c, err := codec.ForFormat[document.Document](cfg.ResolvedFormat())
	if err != nil {
		return nil, err
	}
	if len(cfg.Rules) > 0 {
		c = codec.NewValidated(c).WithRules(cfg.Rules)
	}
	var opts []repository.Option
	if cfg.CreateDirs {
		opts = append(opts, repository.WithCreateDirs())
	}
	store := repository.NewFileRepository(opts...)
	return persist.NewSharedWith(document.New(), repository.Location(cfg.FilePath), c, store), nil
}

func New(cfg *config.Config, doc *persist.Shared[document.Document], reporter *report.Reporter) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if doc == nil {
		return nil, errors.New("document is nil")
	}
	if reporter == nil {
		reporter = report.Disabled()
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	return &App{
		Config:   cfg,
		Doc:      doc,
		Reporter: reporter,
		BaseCtx:  groupCtx,
		Cancel:   cancel,
		group:    group,
	}, nil
}

// Bootstrap loads the document from the data file. A missing file is created
// holding an empty document; any other failure is returned.
func (a *App) Bootstrap(ctx context.Context) error {
	log := logger.WithLocation("app", a.Doc.Location())

	err := a.Doc.Load(ctx)
	switch {
	case err == nil:
		log.Infof("document loaded (%s)", a.Doc.Format())
		return nil
	case persist.IsNotFound(err):
		log.Info("data file not found, creating an empty document")
		if err := a.Doc.Persist(ctx, 0); err != nil {
			return fmt.Errorf("create data file: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("load data file: %w", err)
	}
}

// StartWatchers starts the supervised persistence loop and, when enabled,
// the data file watcher. Both stop when Shutdown is called.
func (a *App) StartWatchers() error {
	if a.Config.Data.WatchEnabled {
		if err := a.Doc.ReloadOnChange(a.BaseCtx); err != nil {
			return fmt.Errorf("cannot start data file watcher: %w", err)
		}
	}

	a.group.Go(func() error {
		return a.supervise(a.BaseCtx)
	})
	return nil
}

func (a *App) loopOptions() []persist.LoopOption {
	opts := []persist.LoopOption{persist.WithFinalFlush()}
	if a.Config.Data.SkipClean {
		opts = append(opts, persist.SkipClean())
	}
	return opts
}

// supervise keeps a persistence loop running until ctx is cancelled. A
// failed loop is reported and restarted after data.restart_delay.
func (a *App) supervise(ctx context.Context) error {
	log := logger.WithComponent("app")
	interval := a.Config.Data.PersistInterval

	for {
		loop := a.Doc.StartPersisting(ctx, interval, a.loopOptions()...)
		a.mu.Lock()
		a.loop = loop
		a.mu.Unlock()
		log.Debugf("persistence loop %s started (interval %v)", loop.ID(), interval)

		err := loop.Wait()
		if ctx.Err() != nil {
			if err != nil {
				log.Errorf("final flush failed: %v", err)
				a.Reporter.Notify(err, "persist", "shutdown")
			}
			return err
		}

		a.recordFailure(err)
		log.Errorf("persistence loop %s failed: %v; restarting in %v", loop.ID(), err, a.Config.Data.RestartDelay)
		a.Reporter.Notify(err, "persist")

		select {
		case <-ctx.Done():
			return a.flushPending(ctx)
		case <-time.After(a.Config.Data.RestartDelay):
		}
	}
}

func (a *App) flushPending(ctx context.Context) error {
	if !a.Doc.IsDirty() {
		return nil
	}
	return a.Doc.Persist(context.WithoutCancel(ctx), 0)
}

func (a *App) recordFailure(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.restarts++
	a.lastError = err
	a.lastFail = time.Now()
}

// LoopStatus reports on the current persistence loop.
func (a *App) LoopStatus() LoopStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := LoopStatus{
		Interval: a.Config.Data.PersistInterval,
		Restarts: a.restarts,
	}
	if a.loop != nil {
		st.ID = a.loop.ID()
		st.Running = a.loop.Running()
	}
	if a.lastError != nil {
		st.LastError = a.lastError.Error()
		failedAt := a.lastFail
		st.LastFail = &failedAt
	}
	return st
}

// Shutdown cancels the lifecycle context and waits for the supervised
// goroutines. The returned error is the final flush result.
func (a *App) Shutdown() error {
	if a == nil || a.Cancel == nil {
		return nil
	}
	a.Cancel()
	err := a.group.Wait()
	a.Reporter.Flush()
	return err
}
