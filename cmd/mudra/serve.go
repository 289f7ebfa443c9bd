package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/collect"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var (
	serveAddr string
	withTray  bool
	noCamera  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the optional camera pipeline and tray",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if noCamera {
			cfg.Capture.Enabled = false
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&withTray, "tray", false, "Show the system tray menu")
	serveCmd.Flags().BoolVar(&noCamera, "no-camera", false, "Disable the camera pipeline")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	application := app.New(app.Config{
		Store:   st,
		Session: cfg.CollectConfig(),
		Camera: capture.Options{
			DeviceID: cfg.Capture.CameraID,
			Width:    cfg.Capture.Width,
			Height:   cfg.Capture.Height,
			FPS:      cfg.Session.FPS,
		},
		Detector:          cfg.DetectorConfig(),
		PoorLightingBelow: cfg.Capture.PoorLightingBelow,
		DefaultGesture:    cfg.Session.DefaultGesture,
		SinkDir:           cfg.Sinks.Dir,
		SinkTimeout:       cfg.SinkTimeout(),
	})
	if err := application.DiscoverSinks(); err != nil {
		slog.Warn("sink discovery failed", slog.String("dir", cfg.Sinks.Dir), slog.Any("error", err))
	}

	if cfg.Sinks.MQTT.Broker != "" {
		pub, err := sink.NewMQTTPublisher(sink.MQTTConfig{
			Broker:   cfg.Sinks.MQTT.Broker,
			Topic:    cfg.Sinks.MQTT.Topic,
			ClientID: cfg.Sinks.MQTT.ClientID,
		})
		if err != nil {
			slog.Warn("mqtt publisher disabled", slog.Any("error", err))
		} else {
			application.SetPublisher(pub)
			defer pub.Close()
		}
	}

	srvCfg := server.Config{
		StaticDir:      findWebDir(cfg.Server.StaticDir),
		DefaultGesture: cfg.Session.DefaultGesture,
		Session:        application.Session(),
		Store:          st,
		Exporter:       application,
		Sinks:          application.Sinks(),
		Dispatcher:     application.Dispatcher(),
	}

	if cfg.Capture.Enabled {
		if err := application.Start(); err != nil {
			slog.Warn("camera pipeline disabled", slog.Any("error", err))
		} else {
			application.SetEnabled(true)
			srvCfg.Camera = application.Camera()
			srvCfg.Landmarks = application
		}
	}
	defer application.Stop()

	srv := server.New(srvCfg)
	application.OnTake(srv.Detections().BroadcastTake)

	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", slog.String("addr", cfg.Server.Addr), slog.String("static_dir", srvCfg.StaticDir))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if withTray {
		t := tray.New()
		t.OnToggleTake(application.ToggleTake)
		t.OnExport(func() {
			if _, err := application.Export(ctx); err != nil {
				slog.Error("export failed", slog.Any("error", err))
			}
		})
		t.OnQuit(cancel)
		application.OnTake(func(take collect.Take) {
			t.SetLastTake(take.LogLine())
			t.SetCollecting(application.Session().IsCollecting())
		})

		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		t.Run()
		cancel()
	}

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// findWebDir returns the configured static directory when it exists, then
// falls back to "web" next to the working directory and ~/.mudra/web.
// Returns "" when none exists.
func findWebDir(configured string) string {
	candidates := []string{configured, "web", "../web"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mudra", "web"))
	}

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
