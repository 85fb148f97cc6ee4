package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"dualcam/internal/capture"
	"dualcam/internal/compositor"
	"dualcam/internal/config"
	"dualcam/internal/frame"
	"dualcam/internal/logging"
	"dualcam/internal/stream"
	"dualcam/internal/ws"

	"go.uber.org/zap"
)

// errRecordingDone stops the process once the session ends on its own
var errRecordingDone = errors.New("recording finished")

func main() {
	var (
		configF = flag.String("config", "", "Path to a YAML or JSON config file")
		outF    = flag.String("out", "", "Directory for composited JPEG frames (empty disables)")
		dbgF    = flag.Bool("debug", false, "Log at debug level")
	)
	flag.Parse()

	cfg, err := config.Load(*configF)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dualcam: %v\n", err)
		os.Exit(1)
	}

	logOpts := cfg.Logging("dualcam")
	if *dbgF {
		logOpts.Level = "debug"
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dualcam: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comp, err := compositor.New(cfg.Compositor(), logger)
	if err != nil {
		logger.Fatal("invalid compositor config", zap.Error(err))
	}

	front, err := newCamera(cfg, frame.SourceFront, 1, logger)
	if err != nil {
		logger.Fatal("invalid capture config", zap.Error(err))
	}
	back, err := newCamera(cfg, frame.SourceBack, 2, logger)
	if err != nil {
		logger.Fatal("invalid capture config", zap.Error(err))
	}

	preview := stream.NewPreview(cfg.Preview.JPEGQuality, logger)
	hub := ws.NewHub(logger)

	// Create channel used by the signal handler, the recorder and the server
	// goroutines to notify the main goroutine when to stop.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Preview.Addr != "" {
		handleHTTPServer(ctx, cfg.Preview.Addr, comp, preview, hub, &wg, errc, logger)
	}

	rec := &recorder{
		comp:     comp,
		front:    front,
		back:     back,
		preview:  preview,
		hub:      hub,
		logger:   logger.Named("recorder"),
		duration: cfg.Capture.Duration,
		tail:     tailFor(cfg.Capture.FPS),
		outDir:   *outF,
		quality:  cfg.Preview.JPEGQuality,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := rec.Run(ctx)
		if err == nil {
			err = errRecordingDone
		}
		select {
		case errc <- err:
		case <-ctx.Done():
		}
	}()

	logger.Info("exiting", zap.NamedError("reason", <-errc))

	cancel()

	wg.Wait()
	logger.Info("exited")
}

func newCamera(cfg *config.AppConfig, src frame.Source, seed int64, logger *zap.Logger) (*capture.Camera, error) {
	return capture.NewCamera(capture.Options{
		Source:   src,
		Width:    cfg.Capture.SourceWidth,
		Height:   cfg.Capture.SourceHeight,
		FPS:      cfg.Capture.FPS,
		DropRate: cfg.Capture.DropRate,
		Seed:     seed,
	}, logger)
}
