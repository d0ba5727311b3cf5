// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Renders feed state and turns keys into player commands
package ui

import (
	"fmt"
	"strings"

	"github.com/camview/liveaudio/pkg/liveaudio"
	"github.com/camview/liveaudio/pkg/playback"
	"github.com/camview/liveaudio/pkg/records"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const volumeStep = 0.05

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(72)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(9)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	indicatorFmt = map[playback.Indicator]lipgloss.Style{
		playback.IndicatorIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		playback.IndicatorPlaying: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		playback.IndicatorLoading: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		playback.IndicatorError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string

	// Player
	state liveaudio.State
	stats liveaudio.Stats

	// Camera
	camera    records.StatusBlock
	hasCamera bool

	// Controls
	volume          float64
	muted           bool
	paused          bool
	awaitingGesture bool
	controls        *Controls

	showDebug bool

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	lines := []string{
		m.renderHeader(),
		m.renderStream(),
		m.renderControls(),
		m.renderCamera(),
		m.renderStats(),
	}
	if m.awaitingGesture {
		lines = append(lines, warnStyle.Render("Audio is blocked, press space to start it"))
	}
	if m.showDebug {
		lines = append(lines, m.renderDebug())
	}
	lines = append(lines, helpStyle.Render("↑/↓ volume  m mute  space start  p pause  r reset  d debug  q quit"))

	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func (m Model) renderHeader() string {
	conn := "Disconnected"
	if m.connected {
		conn = "Connected to " + m.serverName
	}
	return titleStyle.Render("Live Audio") + "\n" + row("Feed", conn)
}

func (m Model) renderStream() string {
	indicator := indicatorFmt[m.state.Indicator].Render(m.state.Indicator.String())
	codec := m.state.Codec
	if codec == "" {
		codec = "none"
	}
	s := row("Audio", indicator) + "\n" + row("Codec", codec)
	if m.state.Ended {
		s += "\n" + row("", "stream ended")
	}
	return s
}

func (m Model) renderControls() string {
	vol := fmt.Sprintf("[%s] %3.0f%%", renderBar(m.volume, 10), m.volume*100)
	if m.muted {
		vol += " muted"
	}
	if m.paused {
		vol += " paused"
	}
	return row("Volume", vol) + "\n" + row("Buffer", fmt.Sprintf("%.0fms", m.stats.BufferedMs))
}

func (m Model) renderCamera() string {
	if !m.hasCamera {
		return row("Camera", "no status")
	}
	var flags []string
	if m.camera.Recording {
		flags = append(flags, "rec")
	}
	if m.camera.Motion {
		flags = append(flags, "motion")
	}
	if m.camera.SignalLost {
		flags = append(flags, "signal lost")
	}
	return row("Camera", fmt.Sprintf("%.1f fps  peak [%s]  %s",
		m.camera.FramesPerSecond(), renderBar(m.camera.PeakLevel(), 10), strings.Join(flags, " ")))
}

func (m Model) renderStats() string {
	return row("Stats", fmt.Sprintf("rx %d  played %d  late %d  dropped %d",
		m.stats.Received, m.stats.Played, m.stats.Late, m.stats.Dropped))
}

func (m Model) renderDebug() string {
	return row("Debug", fmt.Sprintf("reordered %d  stalls %d  decode errs %d  violations %d  stream errs %d",
		m.stats.Reordered, m.stats.Stalls, m.stats.DecodeErrors, m.stats.Violations, m.stats.StreamErrors))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.send(Command{Kind: CommandQuit})
		return m, tea.Quit
	case "up":
		m.volume = clamp(m.volume + volumeStep)
		m.muted = false
		m.controls.send(Command{Kind: CommandVolume, Volume: m.volume})
	case "down":
		m.volume = clamp(m.volume - volumeStep)
		m.controls.send(Command{Kind: CommandVolume, Volume: m.volume})
	case "m":
		m.muted = !m.muted
		v := m.volume
		if m.muted {
			v = 0
		}
		m.controls.send(Command{Kind: CommandVolume, Volume: v})
	case " ", "enter":
		m.awaitingGesture = false
		m.controls.send(Command{Kind: CommandGesture})
	case "p":
		m.paused = !m.paused
		kind := CommandResume
		if m.paused {
			kind = CommandPause
		}
		m.controls.send(Command{Kind: kind})
	case "r":
		m.controls.send(Command{Kind: CommandReset})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.State != nil {
		m.state = *msg.State
		if m.state.Volume > 0 {
			m.volume = m.state.Volume
		}
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
	}
	if msg.Camera != nil {
		m.camera = *msg.Camera
		m.hasCamera = true
	}
	if msg.InputRequired {
		m.awaitingGesture = true
	}
}

// StatusMsg updates TUI state. Nil fields are left unchanged.
type StatusMsg struct {
	Connected     *bool
	ServerName    string
	State         *liveaudio.State
	Stats         *liveaudio.Stats
	Camera        *records.StatusBlock
	InputRequired bool
}

func renderBar(value float64, width int) string {
	filled := int(clamp(value)*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
