// ABOUTME: Player application orchestration
// ABOUTME: Connects the feed client, the player, the TUI and metrics
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/camview/liveaudio/internal/client"
	"github.com/camview/liveaudio/internal/config"
	"github.com/camview/liveaudio/internal/discovery"
	"github.com/camview/liveaudio/internal/metrics"
	"github.com/camview/liveaudio/internal/ui"
	"github.com/camview/liveaudio/pkg/audio/output"
	"github.com/camview/liveaudio/pkg/liveaudio"
	"github.com/camview/liveaudio/pkg/records"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// FallbackCodec is requested when the negotiated codec cannot be played.
const FallbackCodec = "mulaw"

// Options holds what the config file does not
type Options struct {
	UseTUI         bool
	Device         output.Device // nil opens the sound card
	DiscoverWait   time.Duration
	ReconnectDelay time.Duration
}

// App runs one player against one feed
type App struct {
	config *config.Config
	opts   Options
	log    *logrus.Logger

	player   *liveaudio.Player
	client   *client.Client
	tui      *tea.Program
	controls *ui.Controls
	metrics  *http.Server

	server   string
	path     string // feed endpoint, client default when empty
	fallback chan error
	quit     chan struct{}
}

// New creates the application
func New(cfg *config.Config, opts Options, log *logrus.Logger) *App {
	if opts.DiscoverWait == 0 {
		opts.DiscoverWait = 10 * time.Second
	}
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = 2 * time.Second
	}

	return &App{
		config:   cfg,
		opts:     opts,
		log:      log,
		server:   cfg.Server,
		fallback: make(chan error, 1),
		quit:     make(chan struct{}),
	}
}

// Player returns the running player, or nil before Run.
func (a *App) Player() *liveaudio.Player {
	return a.player
}

// Run plays until ctx is done or the user quits
func (a *App) Run(ctx context.Context) error {
	if a.opts.UseTUI {
		a.controls = ui.NewControls()
		a.tui = ui.Run(a.controls, a.config.Volume(), a.config.AudioMute)
		go func() {
			if _, err := a.tui.Run(); err != nil {
				a.log.WithError(err).Error("TUI failed")
			}
			close(a.quit)
		}()
	}

	if a.config.Discover {
		info, err := a.discover(ctx)
		if err != nil {
			a.stopTUI()
			return err
		}
		a.server = info.Addr()
		a.path = info.Path
	}

	a.player = liveaudio.NewPlayer(a.playerConfig())
	a.player.Start()
	defer a.player.Close()

	a.client = client.NewClient(client.Config{
		ServerAddr: a.server,
		Path:       a.path,
		Codec:      a.config.Codec,
		Log:        a.log,
	}, a.player)
	defer a.client.Close()

	if err := a.client.Connect(); err != nil {
		a.stopTUI()
		return errors.Wrap(err, "connection failed")
	}
	a.updateTUI(ui.StatusMsg{Connected: boolPtr(true), ServerName: a.server})

	if a.config.MetricsAddr != "" {
		a.startMetrics()
		defer a.metrics.Close()
	}

	err := a.loop(ctx)
	a.stopTUI()
	return err
}

func (a *App) loop(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var commands chan ui.Command
	if a.controls != nil {
		commands = a.controls.Commands
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-a.quit:
			return nil

		case reason := <-a.fallback:
			a.fallBack(ctx, reason)

		case err := <-a.client.Disconnected:
			a.updateTUI(ui.StatusMsg{Connected: boolPtr(false)})
			if a.player.State().Ended {
				a.log.Info("Feed finished")
			}
			a.reconnect(ctx, err)

		case cmd := <-commands:
			if a.handleCommand(cmd) {
				return nil
			}

		case <-ticker.C:
			state, stats := a.player.State(), a.player.Stats()
			a.updateTUI(ui.StatusMsg{State: &state, Stats: &stats})
		}
	}
}

// fallBack reconnects asking for mu-law, which every camera can send. A
// failed dial leaves the client on mu-law and retries until it connects.
func (a *App) fallBack(ctx context.Context, reason error) {
	if a.client.Codec() == FallbackCodec {
		a.log.WithError(reason).Error("Fallback codec cannot be played either")
		return
	}

	a.log.WithError(reason).WithField("codec", FallbackCodec).Warn("Falling back")
	a.player.Restart()
	if err := a.client.Reconnect(FallbackCodec); err != nil {
		a.log.WithError(err).Error("Fallback reconnect failed")
		a.updateTUI(ui.StatusMsg{Connected: boolPtr(false)})
		a.reconnect(ctx, err)
	}
}

func (a *App) reconnect(ctx context.Context, cause error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.quit:
			return
		case <-time.After(a.opts.ReconnectDelay):
		}

		a.player.Restart()
		err := a.client.Reconnect(a.client.Codec())
		if err == nil {
			a.updateTUI(ui.StatusMsg{Connected: boolPtr(true), ServerName: a.server})
			return
		}
		if errors.Cause(err) == client.ErrNotConnected {
			return
		}
		a.log.WithError(err).WithField("cause", cause).Warn("Reconnect failed")
	}
}

// handleCommand applies a TUI command; it reports true on quit.
func (a *App) handleCommand(cmd ui.Command) bool {
	switch cmd.Kind {
	case ui.CommandVolume:
		a.player.SetVolume(cmd.Volume)
	case ui.CommandGesture:
		a.player.UserGesture()
	case ui.CommandPause:
		a.player.Pause()
	case ui.CommandResume:
		a.player.Resume()
	case ui.CommandReset:
		a.player.Reset()
	case ui.CommandQuit:
		return true
	}
	return false
}

func (a *App) playerConfig() liveaudio.PlayerConfig {
	delay := a.config.TargetDelay()
	return liveaudio.PlayerConfig{
		TargetDelay:     &delay,
		Volume:          a.config.Volume(),
		Muted:           a.config.AudioMute,
		AutoplayWarning: a.config.AutoplayWarning,
		Device:          a.opts.Device,
		Log:             a.log,
		OnError: func(err error) {
			a.log.WithError(err).Debug("Player reported error")
		},
		OnFallback: func(reason error) {
			select {
			case a.fallback <- reason:
			default:
			}
		},
		OnStatus: func(s records.StatusBlock) {
			a.updateTUI(ui.StatusMsg{Camera: &s})
		},
		OnInputRequired: func() {
			a.log.Warn("Audio output is blocked until user input")
			a.updateTUI(ui.StatusMsg{InputRequired: true})
		},
	}
}

func (a *App) discover(ctx context.Context) (*discovery.ServerInfo, error) {
	a.log.Info("Starting feed discovery")
	mgr := discovery.NewManager(discovery.Config{Log: a.log})
	defer mgr.Stop()

	ctx, cancel := context.WithTimeout(ctx, a.opts.DiscoverWait)
	defer cancel()

	server, err := mgr.First(ctx)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"addr": server.Addr(),
		"path": server.Path,
	}).Info("Discovered feed")
	return server, nil
}

func (a *App) startMetrics() {
	reg := metrics.NewRegistry(a.player)
	reg.MustRegister(prometheus.NewGoCollector())
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	a.metrics = &http.Server{Addr: a.config.MetricsAddr, Handler: mux}

	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("Metrics server failed")
		}
	}()
	a.log.WithField("addr", a.config.MetricsAddr).Info("Serving metrics")
}

func (a *App) updateTUI(msg ui.StatusMsg) {
	if a.tui != nil {
		a.tui.Send(msg)
	}
}

func (a *App) stopTUI() {
	if a.tui != nil {
		a.tui.Quit()
	}
}

func boolPtr(b bool) *bool { return &b }
