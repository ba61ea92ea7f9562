package ui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/narrator/tts"
)

type fakeControls struct {
	mu     sync.Mutex
	calls  []string
	status tts.Status
}

func (f *fakeControls) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeControls) Toggle()     { f.record("toggle") }
func (f *fakeControls) NarrateAll() { f.record("narrate_all") }
func (f *fakeControls) NarrateText(_ context.Context, text, _ string) string {
	f.record("narrate:" + text)
	return ""
}
func (f *fakeControls) Pause() {
	f.record("pause")
	f.mu.Lock()
	f.status.Paused = true
	f.mu.Unlock()
}
func (f *fakeControls) Resume() {
	f.record("resume")
	f.mu.Lock()
	f.status.Paused = false
	f.mu.Unlock()
}
func (f *fakeControls) Status() tts.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeControls) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// runCmd executes cmd and any batched commands, returning the messages
// they produce.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func testModel(c tts.Controls) model {
	return newModel(Config{StatusMessageTimeout: time.Millisecond}, c)
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStatusDisplayPhases(t *testing.T) {
	tests := []struct {
		name   string
		status tts.Status
		want   string
		busy   bool
	}{
		{"disabled", tts.Status{}, "disabled", false},
		{"idle", tts.Status{Enabled: true}, "idle", false},
		{"preparing", tts.Status{Enabled: true, Processing: true, Queued: 1}, "preparing", true},
		{"playing", tts.Status{Enabled: true, Processing: true, Playing: true, Speaker: "Alice"}, "playing", true},
		{"paused", tts.Status{Enabled: true, Processing: true, Playing: true, Paused: true}, "paused", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewStatusDisplay()
			d.Update(tt.status)

			if got := phaseOf(tt.status).String(); got != tt.want {
				t.Errorf("phase = %q, want %q", got, tt.want)
			}
			if d.Busy() != tt.busy {
				t.Errorf("Busy() = %v, want %v", d.Busy(), tt.busy)
			}
			if !strings.Contains(d.CompactStatus(), tt.want) {
				t.Errorf("CompactStatus() = %q, missing %q", d.CompactStatus(), tt.want)
			}
		})
	}
}

func TestStatusDisplayCompact(t *testing.T) {
	d := NewStatusDisplay()
	d.Update(tts.Status{Enabled: true, Processing: true, Playing: true, Speaker: "Alice", Queued: 2, AudioQueued: 1})

	status := d.CompactStatus()
	if !strings.Contains(status, "▶") {
		t.Error("Playing status should contain play icon")
	}
	if !strings.Contains(status, "Alice") {
		t.Error("Playing status should name the speaker")
	}
	if !strings.Contains(status, "+3") {
		t.Errorf("Status should show the backlog, got %q", status)
	}
}

func TestStatusDisplayDetailed(t *testing.T) {
	d := NewStatusDisplay()
	d.Update(tts.Status{Enabled: true, Processing: true, Queued: 4, JobState: tts.StateSynthesizing})
	d.Update(tts.Status{
		Enabled:    true,
		Processing: true,
		Queued:     2,
		JobState:   tts.StateSynthesizing,
		LastError:  strings.Repeat("synthesis failed ", 10),
	})

	detail := d.DetailedStatus(40)
	for _, want := range []string{"Narration", "preparing", "Job: synthesizing", "Queued: 2 text, 0 audio", "Error:", ellipsis, "█", "░"} {
		if !strings.Contains(detail, want) {
			t.Errorf("DetailedStatus missing %q:\n%s", want, detail)
		}
	}

	// The peak resets once the pipeline drains.
	d.Update(tts.Status{Enabled: true})
	if strings.Contains(d.DetailedStatus(40), "█") {
		t.Error("Backlog bar should disappear when idle")
	}
}

func TestToggleGlyph(t *testing.T) {
	m := testModel(&fakeControls{})
	if !strings.Contains(m.View(), "▶ space") {
		t.Errorf("Idle panel should offer play:\n%s", m.View())
	}

	next, _ := m.Update(tts.StatusMsg{Status: tts.Status{Enabled: true, Processing: true, Queued: 1}})
	if !strings.Contains(next.View(), "◼ space") {
		t.Errorf("Busy panel should offer stop:\n%s", next.View())
	}
}

func TestModelKeys(t *testing.T) {
	tests := []struct {
		key  string
		want string
		note string
	}{
		{" ", "toggle", "narrating last message"},
		{"t", "toggle", "narrating last message"},
		{"a", "narrate_all", "narrating chat"},
		{"p", "pause", "paused"},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.key, func(t *testing.T) {
			c := &fakeControls{status: tts.Status{Enabled: true}}
			m := testModel(c)

			next, cmd := m.Update(key(tt.key))
			nm := next.(model)
			if nm.statusMessage != tt.note {
				t.Errorf("statusMessage = %q, want %q", nm.statusMessage, tt.note)
			}

			msgs := runCmd(cmd)
			if got := c.history(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", got, tt.want)
			}

			var sawStatus, sawTimeout bool
			for _, msg := range msgs {
				switch msg := msg.(type) {
				case tts.StatusMsg:
					sawStatus = true
				case statusMessageTimeoutMsg:
					sawTimeout = true
					next, _ = next.Update(msg)
				}
			}
			if !sawStatus || !sawTimeout {
				t.Errorf("Expected status and timeout messages, got %v", msgs)
			}
			if next.(model).statusMessage != "" {
				t.Error("Status message should clear after the timeout")
			}
		})
	}
}

func TestModelToggleWhileBusy(t *testing.T) {
	c := &fakeControls{}
	m := testModel(c)
	next, _ := m.Update(tts.StatusMsg{Status: tts.Status{Enabled: true, Processing: true, Playing: true}})

	next, _ = next.Update(key(" "))
	if got := next.(model).statusMessage; got != "stopping" {
		t.Errorf("statusMessage = %q, want stopping", got)
	}
}

func TestModelResume(t *testing.T) {
	c := &fakeControls{status: tts.Status{Enabled: true, Paused: true}}
	m := testModel(c)
	next, _ := m.Update(tts.StatusMsg{Status: c.Status()})

	_, cmd := next.Update(key("p"))
	for _, msg := range runCmd(cmd) {
		if st, ok := msg.(tts.StatusMsg); ok && st.Status.Paused {
			t.Error("Expected resumed status")
		}
	}
	if got := c.history(); len(got) != 1 || got[0] != "resume" {
		t.Errorf("calls = %v", got)
	}
}

func TestModelStaleTimeoutKeepsNewerMessage(t *testing.T) {
	m := testModel(&fakeControls{})
	next, _ := m.Update(key("a"))
	next, _ = next.Update(key("t"))

	next, _ = next.Update(statusMessageTimeoutMsg{seq: 1})
	if got := next.(model).statusMessage; got != "narrating last message" {
		t.Errorf("statusMessage = %q", got)
	}
}

func TestModelNotices(t *testing.T) {
	m := newModel(Config{NoticeLimit: 2}, &fakeControls{})
	var next tea.Model = m
	for _, text := range []string{"one", "two", "three"} {
		next, _ = next.Update(tts.NoticeMsg{Level: tts.NoticeWarn, Text: text, Timestamp: time.Now()})
	}

	nm := next.(model)
	if len(nm.notices) != 2 || nm.notices[0].Text != "two" {
		t.Fatalf("notices = %+v", nm.notices)
	}

	view := nm.View()
	if !strings.Contains(view, "three") || strings.Contains(view, "one") {
		t.Errorf("View should list the latest notices:\n%s", view)
	}
	if !strings.Contains(view, "now") {
		t.Errorf("View should show humanized times:\n%s", view)
	}

	next, _ = nm.Update(key("c"))
	if len(next.(model).notices) != 0 {
		t.Error("c should clear notices")
	}
}

func TestModelQuitAndHelp(t *testing.T) {
	m := testModel(&fakeControls{})

	next, _ := m.Update(key("?"))
	if !strings.Contains(next.View(), "pause / resume") {
		t.Error("Help should be shown after ?")
	}

	_, cmd := next.Update(key("q"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestModelInitReportsStatus(t *testing.T) {
	c := &fakeControls{status: tts.Status{Enabled: true, Queued: 3}}
	m := testModel(c)

	var found bool
	cmd := m.Init()
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			// Skip the spinner tick, which sleeps.
			if st, ok := runIfStatus(c); ok {
				found = st.Status.Queued == 3
			}
		}
	}
	if !found {
		t.Error("Init should fetch the current status")
	}
}

func runIfStatus(cmd tea.Cmd) (tts.StatusMsg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		st, ok := msg.(tts.StatusMsg)
		return st, ok
	case <-time.After(50 * time.Millisecond):
		return tts.StatusMsg{}, false
	}
}
