package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/facecomm/internal/app"
	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/server"
	"github.com/ayusman/facecomm/internal/tray"
)

func newRunCmd(e *env) *cobra.Command {
	var (
		withTray bool
		serveAPI bool
		record   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Detect gestures from the local camera and run bound actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := e.config.Settings

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			plugins, executor, err := e.openPlugins()
			if err != nil {
				return err
			}

			det, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
			if err != nil {
				return fmt.Errorf("face detector: %w", err)
			}

			a, err := app.New(app.Config{
				Camera:     capture.NewCamera(cameraOptions(e)),
				Detector:   det,
				Store:      st,
				Dispatcher: app.NewDispatcher(st, plugins, executor, e.logger.With("component", "dispatch")),
				Thresholds: e.config.Thresholds,
				FPS:        settings.Camera.FPS,
				Record:     record || settings.Data.Record,
				Logger:     e.logger.With("component", "pipeline"),
			})
			if err != nil {
				return err
			}
			a.OnGesture(func(ev gesture.Event) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", ev.Time.Format("15:04:05.000"), ev.Kind.Label())
			})

			if err := a.Start(); err != nil {
				return fmt.Errorf("start pipeline: %w", err)
			}
			defer a.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			if serveAPI {
				srv := server.New(server.Config{
					StaticDir:  findStaticDir(settings.Server.StaticDir),
					Store:      st,
					Plugins:    plugins,
					Thresholds: e.config.Thresholds,
					Phrases:    e.config.Phrases,
					Logger:     e.logger,
				})
				go func() {
					if err := srv.Run(ctx, settings.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
						stop()
					}
				}()
			}

			if !withTray {
				<-ctx.Done()
				return drain(errCh)
			}

			t := tray.New()
			t.OnToggle(a.SetEnabled)
			t.OnReset(a.Reset)
			t.OnOpen(func() {
				if err := openBrowser("http://" + settings.Server.Addr); err != nil {
					e.logger.Warn("failed to open browser", "error", err)
				}
			})
			t.OnQuit(stop)
			a.OnGesture(func(ev gesture.Event) { t.SetLastGesture(ev.Kind.Label()) })

			go func() {
				<-ctx.Done()
				t.Quit()
			}()
			// The tray owns the main thread until it quits.
			t.Run()
			return drain(errCh)
		},
	}

	cmd.Flags().BoolVar(&withTray, "tray", false, "show a system tray menu")
	cmd.Flags().BoolVar(&serveAPI, "serve", true, "also serve the HTTP API on server.addr")
	cmd.Flags().BoolVar(&record, "record", false, "record per-frame features for replay")
	return cmd
}

func drain(errCh <-chan error) error {
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
