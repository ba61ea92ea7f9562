package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/narrator/tts"
)

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Render
)

// phase is the coarse state shown in the status bar.
type phase int

const (
	phaseDisabled phase = iota
	phaseIdle
	phasePreparing
	phasePlaying
	phasePaused
)

func phaseOf(s tts.Status) phase {
	switch {
	case !s.Enabled:
		return phaseDisabled
	case s.Paused:
		return phasePaused
	case s.Playing:
		return phasePlaying
	case s.Processing:
		return phasePreparing
	default:
		return phaseIdle
	}
}

func (p phase) String() string {
	switch p {
	case phaseDisabled:
		return "disabled"
	case phaseIdle:
		return "idle"
	case phasePreparing:
		return "preparing"
	case phasePlaying:
		return "playing"
	case phasePaused:
		return "paused"
	default:
		return "unknown"
	}
}

func (p phase) icon() string {
	switch p {
	case phasePlaying:
		return "▶"
	case phasePaused:
		return "⏸"
	case phasePreparing:
		return "⟳"
	case phaseIdle:
		return "■"
	default:
		return "○"
	}
}

func (p phase) color() lipgloss.Color {
	switch p {
	case phasePlaying:
		return lipgloss.Color("#00FF00")
	case phasePaused:
		return lipgloss.Color("#FFFF00")
	case phasePreparing:
		return lipgloss.Color("#00AAFF")
	case phaseIdle:
		return lipgloss.Color("#888888")
	default:
		return lipgloss.Color("#666666")
	}
}

// StatusDisplay renders pipeline snapshots.
type StatusDisplay struct {
	status tts.Status
	// peak is the largest backlog seen since the queues last drained. It
	// scales the backlog bar.
	peak int
}

// NewStatusDisplay creates an empty display.
func NewStatusDisplay() *StatusDisplay {
	return &StatusDisplay{}
}

// Update records a new snapshot.
func (s *StatusDisplay) Update(st tts.Status) {
	s.status = st
	backlog := st.Queued + st.AudioQueued
	if backlog == 0 && !st.Processing {
		s.peak = 0
	} else if backlog > s.peak {
		s.peak = backlog
	}
}

// Status returns the last snapshot.
func (s *StatusDisplay) Status() tts.Status { return s.status }

// Busy reports whether the pipeline has work queued or playing.
func (s *StatusDisplay) Busy() bool {
	p := phaseOf(s.status)
	return p == phasePreparing || p == phasePlaying
}

// ToggleGlyph is the glyph of the play toggle: stop while the pipeline is
// processing, play otherwise.
func (s *StatusDisplay) ToggleGlyph() string {
	if s.status.Processing {
		return "◼"
	}
	return "▶"
}

// CompactStatus returns a one-line status for the status bar.
func (s *StatusDisplay) CompactStatus() string {
	p := phaseOf(s.status)
	status := lipgloss.NewStyle().Foreground(p.color()).Render(fmt.Sprintf("%s %s", p.icon(), p))

	if s.status.Speaker != "" && (p == phasePlaying || p == phasePreparing) {
		status += " " + s.status.Speaker
	}
	if n := s.status.Queued + s.status.AudioQueued; n > 0 {
		status += lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).
			Render(fmt.Sprintf(" +%d", n))
	}
	return status
}

// DetailedStatus returns a multi-line panel at most width columns wide.
func (s *StatusDisplay) DetailedStatus(width int) string {
	st := s.status
	p := phaseOf(st)

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render("Narration"))
	lines = append(lines, lipgloss.NewStyle().Foreground(p.color()).
		Render(fmt.Sprintf("State: %s %s", p.icon(), p)))

	if st.Speaker != "" {
		lines = append(lines, "Speaker: "+truncate.StringWithTail(st.Speaker, uint(max(width-9, 1)), ellipsis))
	}
	if st.JobState.IsActive() {
		lines = append(lines, "Job: "+st.JobState.String())
	}
	lines = append(lines, fmt.Sprintf("Queued: %d text, %d audio", st.Queued, st.AudioQueued))
	if width > 20 && s.peak > 0 {
		lines = append(lines, s.backlogBar(width-4))
	}

	if st.LastError != "" {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
		errorLine := truncate.StringWithTail(st.LastError, uint(max(width-9, 1)), ellipsis)
		lines = append(lines, errorStyle.Render("Error: "+errorLine))
	}

	return strings.Join(lines, "\n")
}

// backlogBar draws the remaining backlog relative to its peak.
func (s *StatusDisplay) backlogBar(width int) string {
	if width < 10 || s.peak == 0 {
		return ""
	}
	backlog := s.status.Queued + s.status.AudioQueued
	filledWidth := width * backlog / s.peak
	if filledWidth > width {
		filledWidth = width
	}

	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	filledStyle := lipgloss.NewStyle().Foreground(phaseOf(s.status).color())
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))
	return filledStyle.Render(filled) + emptyStyle.Render(empty)
}
