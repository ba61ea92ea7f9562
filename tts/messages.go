package tts

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the pipeline and the UI.

// StatusMsg carries a pipeline snapshot.
type StatusMsg struct {
	Status    Status
	Timestamp time.Time
}

// NoticeMsg carries a user-facing notice.
type NoticeMsg struct {
	Level     NoticeLevel
	Text      string
	Timestamp time.Time
}

// ToggleMsg asks the narrator to stop, or to narrate the last message.
type ToggleMsg struct{}

// NarrateAllMsg asks the narrator to narrate the whole chat.
type NarrateAllMsg struct{}

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// ForwardStatus sends every status published by p to s.
func ForwardStatus(p *Pipeline, s Sender) {
	p.OnStatus(func(st Status) {
		s.Send(StatusMsg{Status: st, Timestamp: time.Now()})
	})
}

// NoticeSender returns a Notifier that sends NoticeMsg values to s.
func NoticeSender(s Sender) Notifier {
	return NotifierFunc(func(level NoticeLevel, msg string) {
		s.Send(NoticeMsg{Level: level, Text: msg, Timestamp: time.Now()})
	})
}

// MultiNotifier fans a notice out to several notifiers.
func MultiNotifier(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(level NoticeLevel, msg string) {
		for _, n := range notifiers {
			if n != nil {
				n.Notify(level, msg)
			}
		}
	})
}

// Controls is the narrator surface interactive frontends drive.
// *Narrator implements it.
type Controls interface {
	Toggle()
	NarrateAll()
	NarrateText(ctx context.Context, text, voice string) string
	Pause()
	Resume()
	Status() Status
}

// Commands for async narrator operations.

func statusNow(c Controls) tea.Msg {
	return StatusMsg{Status: c.Status(), Timestamp: time.Now()}
}

// ToggleCmd toggles narration.
func ToggleCmd(c Controls) tea.Cmd {
	return func() tea.Msg {
		c.Toggle()
		return statusNow(c)
	}
}

// NarrateAllCmd narrates the current chat.
func NarrateAllCmd(c Controls) tea.Cmd {
	return func() tea.Msg {
		c.NarrateAll()
		return statusNow(c)
	}
}

// NarrateTextCmd narrates free text with an optional speaker override.
func NarrateTextCmd(ctx context.Context, c Controls, text, voice string) tea.Cmd {
	return func() tea.Msg {
		c.NarrateText(ctx, text, voice)
		return statusNow(c)
	}
}

// PauseCmd pauses or resumes narration.
func PauseCmd(c Controls, pause bool) tea.Cmd {
	return func() tea.Msg {
		if pause {
			c.Pause()
		} else {
			c.Resume()
		}
		return statusNow(c)
	}
}
