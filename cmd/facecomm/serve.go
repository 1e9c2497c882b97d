package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/facecomm/internal/app"
	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/server"
)

func newServeCmd(e *env) *cobra.Command {
	var (
		addr       string
		withCamera bool
		record     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the /ws gesture session endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := e.config.Settings
			if addr == "" {
				addr = settings.Server.Addr
			}

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			plugins, executor, err := e.openPlugins()
			if err != nil {
				return err
			}
			dispatcher := app.NewDispatcher(st, plugins, executor, e.logger.With("component", "dispatch"))
			defer dispatcher.Wait()

			cfg := server.Config{
				StaticDir:  findStaticDir(settings.Server.StaticDir),
				Store:      st,
				Plugins:    plugins,
				Thresholds: e.config.Thresholds,
				Phrases:    e.config.Phrases,
				Record:     record || settings.Data.Record,
				OnEvent:    dispatcher.Go,
				Logger:     e.logger,
			}

			// Frames sent over /ws need a server-side detector; clients that
			// send landmarks do not.
			if d, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
				cfg.Detector = d
				defer d.Close()
			} else {
				e.logger.Warn("face mesh service unavailable; only landmark messages are accepted", "error", err)
			}

			if withCamera {
				cam := capture.NewCamera(cameraOptions(e))
				if err := cam.Open(); err != nil {
					return err
				}
				defer cam.Close()
				cfg.Camera = cam
			}

			if cfg.StaticDir != "" {
				e.logger.Info("serving static files", "dir", cfg.StaticDir)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(cfg).Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr from settings.yaml)")
	cmd.Flags().BoolVar(&withCamera, "camera", false, "open the local camera for /api/stream and /api/landmarks")
	cmd.Flags().BoolVar(&record, "record", false, "record per-frame features for replay")
	return cmd
}

func cameraOptions(e *env) capture.Options {
	c := e.config.Settings.Camera
	return capture.Options{
		DeviceID: c.DeviceID,
		Width:    c.Width,
		Height:   c.Height,
		FPS:      c.FPS,
		Mirror:   c.Mirror,
	}
}
