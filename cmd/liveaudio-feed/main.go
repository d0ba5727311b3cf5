// ABOUTME: Entry point for the simulated camera feed server
// ABOUTME: Parses CLI flags and serves a tone over the camera feed protocol
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/camview/liveaudio/internal/logging"
	"github.com/camview/liveaudio/internal/server"
)

var (
	port       = flag.Int("port", 8927, "WebSocket server port")
	name       = flag.String("name", "", "Server friendly name (default: hostname-camera)")
	codec      = flag.String("codec", "pcm", "Codec sent when the client does not ask: mulaw, pcm, opus")
	sampleRate = flag.Int("rate", server.DefaultSampleRate, "Sample rate in Hz")
	tone       = flag.Float64("tone", 440, "Tone frequency in Hz")
	video      = flag.Bool("video", true, "Interleave placeholder video frames")
	logFile    = flag.String("log-file", "", "Log file path (default: stderr)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	logConfig := logging.LogConfig{Path: *logFile, UseStderr: *logFile == "", Level: "info"}
	if *debug {
		logConfig.Level = "debug"
	}
	logConfig.ApplyDefaults()
	logger, err := logConfig.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-camera", hostname)
	}

	srv := server.New(server.Config{
		Port:         *port,
		Name:         serverName,
		EnableMDNS:   !*noMDNS,
		DefaultCodec: *codec,
		SampleRate:   *sampleRate,
		ToneHz:       *tone,
		Video:        *video,
		Log:          logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig.String()).Info("Shutting down")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
}
