// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the command channel back to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind names a user action.
type CommandKind int

// Commands.
const (
	CommandVolume CommandKind = iota
	CommandGesture
	CommandPause
	CommandResume
	CommandReset
	CommandQuit
)

// Command is a user action for the player
type Command struct {
	Kind   CommandKind
	Volume float64
}

// Controls carries commands from the TUI to the player
type Controls struct {
	Commands chan Command
}

// NewControls creates a new command channel
func NewControls() *Controls {
	return &Controls{Commands: make(chan Command, 10)}
}

// send drops the command when nobody is listening.
func (c *Controls) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, volume float64, muted bool) Model {
	return Model{
		volume:   clamp(volume),
		muted:    muted,
		controls: controls,
	}
}

// Run creates the TUI program
func Run(controls *Controls, volume float64, muted bool) *tea.Program {
	return tea.NewProgram(NewModel(controls, volume, muted), tea.WithAltScreen())
}
