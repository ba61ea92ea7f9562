package tts

import (
	"slices"
	"sync"
)

// ChatSnapshot is the chat state a frontend sends when the chat or its
// members change.
type ChatSnapshot struct {
	ID string `json:"id"`
	// Members are the characters taking part in the chat.
	Members []string `json:"members,omitempty"`
	// Characters are all characters the frontend knows about.
	Characters []string  `json:"characters,omitempty"`
	Current    string    `json:"current,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	Messages   []Message `json:"messages,omitempty"`
}

// ChatRoster tracks the current chat, its speakers and its messages as
// reported by chat events.
type ChatRoster struct {
	mu         sync.RWMutex
	chatID     string
	members    []string
	characters []string
	current    string
	userName   string
	messages   []Message
}

// NewChatRoster creates an empty roster.
func NewChatRoster() *ChatRoster {
	return &ChatRoster{}
}

// Apply replaces the roster with snap. Empty fields keep their previous
// value, except the message list which is replaced whenever the chat id
// changes.
func (r *ChatRoster) Apply(snap ChatSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.ID != r.chatID {
		r.messages = nil
	}
	r.chatID = snap.ID
	if snap.Members != nil {
		r.members = slices.Clone(snap.Members)
	}
	if snap.Characters != nil {
		r.characters = slices.Clone(snap.Characters)
	}
	if snap.Current != "" {
		r.current = snap.Current
	}
	if snap.UserName != "" {
		r.userName = snap.UserName
	}
	if snap.Messages != nil {
		r.messages = slices.Clone(snap.Messages)
	}
}

// ChatID returns the id of the current chat.
func (r *ChatRoster) ChatID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chatID
}

// Speakers returns DefaultVoice followed by the user and the chat members,
// or by every known character when unrestricted is set.
func (r *ChatRoster) Speakers(unrestricted bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	speakers := []string{DefaultVoice}
	if unrestricted {
		speakers = append(speakers, r.characters...)
	} else {
		if r.userName != "" {
			speakers = append(speakers, r.userName)
		}
		speakers = append(speakers, r.members...)
		if r.current != "" {
			speakers = append(speakers, r.current)
		}
	}
	return unique(speakers)
}

// CurrentCharacter returns the character the user is talking to.
func (r *ChatRoster) CurrentCharacter() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// UserName returns the user's display name.
func (r *ChatRoster) UserName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userName
}

// Messages returns a copy of the chat log.
func (r *ChatRoster) Messages() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.messages)
}

// Len returns the number of messages in the chat.
func (r *ChatRoster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}

// Message returns the message with the given index.
func (r *ChatRoster) Message(id int) (Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.messages) {
		return Message{}, false
	}
	return r.messages[id], true
}

// LastMessage returns the newest message.
func (r *ChatRoster) LastMessage() (Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Upsert stores msg at its index, appending when the index is past the end.
func (r *ChatRoster) Upsert(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID >= 0 && msg.ID < len(r.messages) {
		r.messages[msg.ID] = msg
		return
	}
	msg.ID = len(r.messages)
	r.messages = append(r.messages, msg)
}

// Delete removes the message at id and renumbers the ones after it.
func (r *ChatRoster) Delete(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 0 || id >= len(r.messages) {
		return
	}
	r.messages = slices.Delete(r.messages, id, id+1)
	for i := id; i < len(r.messages); i++ {
		r.messages[i].ID = i
	}
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
