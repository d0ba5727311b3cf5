// ABOUTME: Entry point for the live camera audio player
// ABOUTME: Loads configuration, applies CLI overrides and runs the player
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/camview/liveaudio/internal/app"
	"github.com/camview/liveaudio/internal/config"
	"github.com/camview/liveaudio/internal/version"
)

var (
	configFile      = flag.String("config", "", "YAML configuration file")
	serverAddr      = flag.String("server", "", "Feed server address host:port")
	discover        = flag.Bool("discover", false, "Find the feed server with mDNS")
	codec           = flag.String("codec", "", "Requested codec: auto, mulaw, pcm, flac, opus, mp3")
	bufferMs        = flag.Int("buffer-ms", config.DefaultBufferMs, "Most audio queued ahead of playback, 0-5000ms")
	volume          = flag.Float64("volume", 1, "Initial volume 0-1")
	mute            = flag.Bool("mute", false, "Start muted")
	autoplayWarning = flag.Bool("autoplay-warning", false, "Warn when audio output needs user input")
	metricsAddr     = flag.String("metrics-addr", "", "Serve prometheus metrics on this address")
	logFile         = flag.String("log-file", "", "Log file path")
	logLevel        = flag.String("log-level", "", "Log level")
	noTUI           = flag.Bool("no-tui", false, "Disable TUI, log to stderr instead")
	showVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.UserAgent())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	useTUI := !*noTUI
	if !useTUI {
		cfg.Log.UseStderr = true
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("version", version.Version).Info("Starting live audio player")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig.String()).Info("Shutting down")
		cancel()
	}()

	a := app.New(cfg, app.Options{UseTUI: useTUI}, logger)
	if err := a.Run(ctx); err != nil {
		logger.WithError(err).Error("Player failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Player stopped")
}

// loadConfig reads the config file and applies flags set on the command line.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.Server = *serverAddr
		case "discover":
			cfg.Discover = *discover
		case "codec":
			cfg.Codec = *codec
		case "buffer-ms":
			cfg.AudioBufferMs = bufferMs
		case "volume":
			cfg.AudioVolume = volume
		case "mute":
			cfg.AudioMute = *mute
		case "autoplay-warning":
			cfg.AutoplayWarning = *autoplayWarning
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "log-file":
			cfg.Log.Path = *logFile
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	return cfg, cfg.Validate()
}
