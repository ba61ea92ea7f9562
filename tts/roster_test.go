package tts_test

import (
	"slices"
	"testing"

	"github.com/dgnsrekt/narrator/tts"
)

func TestChatRosterApply(t *testing.T) {
	r := tts.NewChatRoster()
	r.Apply(tts.ChatSnapshot{
		ID:         "chat-1",
		Members:    []string{"Alice", "Bob"},
		Characters: []string{"Alice", "Bob", "Carol"},
		Current:    "Alice",
		UserName:   "Sam",
		Messages:   []tts.Message{{ID: 0, Speaker: "Alice", Text: "Hi"}},
	})

	if r.ChatID() != "chat-1" || r.CurrentCharacter() != "Alice" || r.UserName() != "Sam" {
		t.Errorf("Unexpected roster state: %q %q %q", r.ChatID(), r.CurrentCharacter(), r.UserName())
	}

	// Same chat, partial update keeps the rest.
	r.Apply(tts.ChatSnapshot{ID: "chat-1", Current: "Bob"})
	if r.CurrentCharacter() != "Bob" || r.Len() != 1 || r.UserName() != "Sam" {
		t.Errorf("Partial update lost state: current=%q len=%d", r.CurrentCharacter(), r.Len())
	}

	// New chat drops the old log.
	r.Apply(tts.ChatSnapshot{ID: "chat-2"})
	if r.Len() != 0 {
		t.Errorf("Messages should be dropped on chat switch, got %d", r.Len())
	}
}

func TestChatRosterSpeakers(t *testing.T) {
	r := tts.NewChatRoster()
	r.Apply(tts.ChatSnapshot{
		ID:         "chat",
		Members:    []string{"Alice", "Bob", "Alice"},
		Characters: []string{"Alice", "Bob", "Carol", ""},
		Current:    "Dana",
		UserName:   "Sam",
	})

	tests := []struct {
		name         string
		unrestricted bool
		want         []string
	}{
		{"restricted", false, []string{tts.DefaultVoice, "Sam", "Alice", "Bob", "Dana"}},
		{"unrestricted", true, []string{tts.DefaultVoice, "Alice", "Bob", "Carol"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Speakers(tt.unrestricted); !slices.Equal(got, tt.want) {
				t.Errorf("Speakers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChatRosterMessages(t *testing.T) {
	r := tts.NewChatRoster()

	if _, ok := r.LastMessage(); ok {
		t.Error("Empty roster should have no last message")
	}

	r.Upsert(tts.Message{ID: 5, Speaker: "Alice", Text: "one"})
	r.Upsert(tts.Message{ID: -1, Speaker: "Bob", Text: "two"})
	r.Upsert(tts.Message{ID: 2, Speaker: "Alice", Text: "three"})
	r.Upsert(tts.Message{ID: 0, Speaker: "Alice", Text: "one, edited"})

	msgs := r.Messages()
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.ID != i {
			t.Errorf("message %d has id %d", i, msg.ID)
		}
	}
	if msgs[0].Text != "one, edited" {
		t.Errorf("Upsert should replace in place, got %q", msgs[0].Text)
	}

	r.Delete(0)
	if m, ok := r.Message(0); !ok || m.Text != "two" || m.ID != 0 {
		t.Errorf("Delete should renumber, got %+v", m)
	}
	if last, _ := r.LastMessage(); last.Text != "three" || last.ID != 1 {
		t.Errorf("LastMessage = %+v", last)
	}

	r.Delete(10)
	if r.Len() != 2 {
		t.Errorf("Out of range delete changed the log: %d", r.Len())
	}
	if _, ok := r.Message(-1); ok {
		t.Error("Negative id should not resolve")
	}
}

func TestMessageSpeakable(t *testing.T) {
	tests := []struct {
		msg  tts.Message
		want bool
	}{
		{tts.Message{Text: "Hello"}, true},
		{tts.Message{Text: "..."}, false},
		{tts.Message{Text: ""}, false},
		{tts.Message{Text: "note", IsSystem: true}, false},
		{tts.Message{Text: "Hi", IsUser: true}, true},
	}
	for _, tt := range tests {
		if got := tt.msg.Speakable(); got != tt.want {
			t.Errorf("Speakable(%+v) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
