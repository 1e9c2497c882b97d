package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/plugin"
	"github.com/ayusman/facecomm/internal/store"
)

// Dispatcher runs the plugin actions bound to a gesture.
type Dispatcher struct {
	store    *store.Store
	plugins  *plugin.Manager
	executor *plugin.Executor
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher reading bindings from s.
func NewDispatcher(s *store.Store, plugins *plugin.Manager, executor *plugin.Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:    s,
		plugins:  plugins,
		executor: executor,
		logger:   logger,
	}
}

// Dispatch executes every enabled binding for ev's gesture in creation order.
// A failing binding does not stop the rest; all failures are returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, ev gesture.Event) error {
	bindings, err := d.store.Actions().ListByGesture(ev.Kind)
	if err != nil {
		return fmt.Errorf("list actions for %s: %w", ev.Kind, err)
	}

	var errs []error
	for _, b := range bindings {
		if err := d.run(ctx, sessionID, ev, b); err != nil {
			d.logger.Warn("action failed",
				"gesture", ev.Kind, "plugin", b.PluginName, "action", b.ActionName, "error", err)
			errs = append(errs, fmt.Errorf("%s/%s: %w", b.PluginName, b.ActionName, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) run(ctx context.Context, sessionID string, ev gesture.Event, b *store.Action) error {
	p, err := d.plugins.Get(b.PluginName)
	if err != nil {
		return err
	}

	resp, err := d.executor.Execute(ctx, p, &plugin.Request{
		Action:    b.ActionName,
		Gesture:   ev.Kind.String(),
		SessionID: sessionID,
		Timestamp: ev.Time.UnixMilli(),
		Config:    b.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin reported failure: %s", resp.Error)
	}

	d.logger.Info("action executed", "gesture", ev.Kind, "plugin", b.PluginName, "action", b.ActionName)
	return nil
}

// Go dispatches ev in the background so a slow plugin never stalls
// classification. Failures are logged.
func (d *Dispatcher) Go(sessionID string, ev gesture.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Dispatch(context.Background(), sessionID, ev)
	}()
}

// Wait blocks until every background dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
