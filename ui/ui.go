// Package ui provides the terminal status panel for the narrator.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/narrator/tts"
)

const (
	defaultNoticeLimit   = 5
	statusMessageTimeout = time.Second * 3 // how long to show key acknowledgements
	ellipsis             = "…"
)

var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

// NewProgram returns a new Tea program driving c. Feed it pipeline status
// with tts.ForwardStatus and notices with tts.NoticeSender.
func NewProgram(cfg Config, c tts.Controls) *tea.Program {
	log.Debug("starting status panel", "altscreen", cfg.AltScreen)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(newModel(cfg, c), opts...)
}

type statusMessageTimeoutMsg struct{ seq int }

type model struct {
	cfg      Config
	controls tts.Controls

	display *StatusDisplay
	spinner spinner.Model
	notices []tts.NoticeMsg

	width    int
	showHelp bool

	statusMessage    string
	statusMessageSeq int
}

func newModel(cfg Config, c tts.Controls) model {
	if cfg.NoticeLimit <= 0 {
		cfg.NoticeLimit = defaultNoticeLimit
	}
	if cfg.StatusMessageTimeout <= 0 {
		cfg.StatusMessageTimeout = statusMessageTimeout
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(mintGreen)),
	)
	return model{
		cfg:      cfg,
		controls: c,
		display:  NewStatusDisplay(),
		spinner:  sp,
		width:    60,
	}
}

func (m model) Init() tea.Cmd {
	c := m.controls
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return tts.StatusMsg{Status: c.Status(), Timestamp: time.Now()}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tts.StatusMsg:
		m.display.Update(msg.Status)
		return m, nil

	case tts.NoticeMsg:
		m.notices = append(m.notices, msg)
		if len(m.notices) > m.cfg.NoticeLimit {
			m.notices = m.notices[len(m.notices)-m.cfg.NoticeLimit:]
		}
		return m, nil

	case statusMessageTimeoutMsg:
		if msg.seq == m.statusMessageSeq {
			m.statusMessage = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case " ", "t":
		if m.display.Busy() {
			return m.flash("stopping", tts.ToggleCmd(m.controls))
		}
		return m.flash("narrating last message", tts.ToggleCmd(m.controls))

	case "a":
		return m.flash("narrating chat", tts.NarrateAllCmd(m.controls))

	case "p":
		if m.display.Status().Paused {
			return m.flash("resumed", tts.PauseCmd(m.controls, false))
		}
		return m.flash("paused", tts.PauseCmd(m.controls, true))

	case "c":
		m.notices = nil
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}
	return m, nil
}

// flash shows text in the status bar until the timeout passes or another
// message replaces it, and runs cmd.
func (m model) flash(text string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.statusMessage = text
	m.statusMessageSeq++
	seq := m.statusMessageSeq
	timeout := tea.Tick(m.cfg.StatusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{seq: seq}
	})
	return m, tea.Batch(cmd, timeout)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.display.DetailedStatus(m.width))
	b.WriteString("\n\n")

	if len(m.notices) > 0 {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("Notices"))
		b.WriteString("\n")
		for i := len(m.notices) - 1; i >= 0; i-- {
			b.WriteString(m.noticeView(m.notices[i]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(helpView())
		b.WriteString("\n")
	}
	b.WriteString(m.statusBarView())
	return b.String()
}

func (m model) noticeView(n tts.NoticeMsg) string {
	when := subtleStyle.Render(humanize.Time(n.Timestamp))
	text := truncate.StringWithTail(n.Text, uint(max(m.width-lipgloss.Width(when)-3, 1)), ellipsis)
	switch n.Level {
	case tts.NoticeWarn:
		text = warnStyle.Render(text)
	case tts.NoticeError:
		text = errStyle.Render(text)
	}
	return fmt.Sprintf(" %s %s", text, when)
}

func (m model) statusBarView() string {
	status := m.display.CompactStatus()
	if m.display.Busy() {
		status = m.spinner.View() + " " + status
	}

	var note string
	if m.statusMessage != "" {
		note = statusBarMessageStyle(" " + m.statusMessage + " ")
	} else {
		note = statusBarNoteStyle(" " + m.display.ToggleGlyph() + " space  ? Help ")
	}
	return status + " " + note
}

func helpView() string {
	keys := [][2]string{
		{"space", "stop / narrate last"},
		{"a", "narrate chat"},
		{"p", "pause / resume"},
		{"c", "clear notices"},
		{"q", "quit"},
	}
	var lines []string
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%-6s %s", k[0], k[1]))
	}
	return helpViewStyle(strings.Join(lines, "\n"))
}
