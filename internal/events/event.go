// Package events carries chat events from the frontend into the narrator.
// Every transport delivers the same JSON envelope and hands it to a
// Dispatcher, which applies events one at a time in arrival order.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/tts"
)

// Kind names an event type.
type Kind string

// Chat events.
const (
	MessageRendered Kind = "message_rendered"
	MessageDeleted  Kind = "message_deleted"
	MessageSwiped   Kind = "message_swiped"
	ChatChanged     Kind = "chat_changed"
	RosterChanged   Kind = "roster_changed"
)

// Commands.
const (
	Narrate        Kind = "narrate"
	NarrateMessage Kind = "narrate_message"
	NarrateAll     Kind = "narrate_all"
	Toggle         Kind = "toggle"
)

// ErrUnknownKind is returned for envelopes with an unrecognized type.
var ErrUnknownKind = errors.New("unknown event type")

// Event is the envelope every transport carries.
type Event struct {
	Kind Kind `json:"type"`

	// Message is set for message_rendered and message_swiped.
	Message *tts.Message `json:"message,omitempty"`
	// UpTo truncates a rendered message while it streams in.
	UpTo int `json:"up_to,omitempty"`
	// MessageID is set for message_deleted and narrate_message.
	MessageID *int `json:"message_id,omitempty"`
	// Chat is set for chat_changed and roster_changed.
	Chat *tts.ChatSnapshot `json:"chat,omitempty"`

	// Text and Voice are the arguments of narrate.
	Text  string `json:"text,omitempty"`
	Voice string `json:"voice,omitempty"`
}

// Validate checks that the fields the kind needs are present.
func (e Event) Validate() error {
	switch e.Kind {
	case MessageRendered, MessageSwiped:
		if e.Message == nil {
			return fmt.Errorf("%s: message is required", e.Kind)
		}
	case MessageDeleted, NarrateMessage:
		if e.MessageID == nil {
			return fmt.Errorf("%s: message_id is required", e.Kind)
		}
	case ChatChanged, RosterChanged:
		if e.Chat == nil {
			return fmt.Errorf("%s: chat is required", e.Kind)
		}
	case Narrate, NarrateAll, Toggle:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	return nil
}

// Decode parses and validates one JSON envelope.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Reply acknowledges an event.
type Reply struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result string `json:"result,omitempty"`
}

// Target receives decoded events. *tts.Narrator implements it.
type Target interface {
	MessageRendered(msg tts.Message, upTo int)
	MessageDeleted(id int)
	MessageSwiped(msg tts.Message)
	ChatChanged(ctx context.Context, snap tts.ChatSnapshot)
	NarrateText(ctx context.Context, text, voice string) string
	NarrateMessage(id int)
	NarrateAll()
	Toggle()
}

// Dispatcher applies events to a Target. Events from all transports are
// serialized so each one sees the effects of the one before it.
type Dispatcher struct {
	mu     sync.Mutex
	target Target
	log    *log.Logger
}

// NewDispatcher creates a dispatcher for target.
func NewDispatcher(target Target, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{target: target, log: logger.WithPrefix("events")}
}

// Dispatch applies e and returns the command result, which is only
// non-empty for commands that produce one.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.log.Debug("event", "type", e.Kind)
	switch e.Kind {
	case MessageRendered:
		d.target.MessageRendered(*e.Message, e.UpTo)
	case MessageDeleted:
		d.target.MessageDeleted(*e.MessageID)
	case MessageSwiped:
		d.target.MessageSwiped(*e.Message)
	case ChatChanged, RosterChanged:
		d.target.ChatChanged(ctx, *e.Chat)
	case Narrate:
		return d.target.NarrateText(ctx, e.Text, e.Voice), nil
	case NarrateMessage:
		d.target.NarrateMessage(*e.MessageID)
	case NarrateAll:
		d.target.NarrateAll()
	case Toggle:
		d.target.Toggle()
	}
	return "", nil
}

// HandleJSON decodes and dispatches one envelope and builds the reply
// transports send back.
func (d *Dispatcher) HandleJSON(ctx context.Context, data []byte) Reply {
	e, err := Decode(data)
	if err != nil {
		d.log.Warn("rejecting event", "err", err)
		return Reply{Error: err.Error()}
	}
	result, err := d.Dispatch(ctx, e)
	if err != nil {
		return Reply{Error: err.Error()}
	}
	return Reply{OK: true, Result: result}
}

// Source is an event transport.
type Source interface {
	// Run delivers events to d until ctx is done or the transport fails.
	Run(ctx context.Context, d *Dispatcher) error
	Name() string
}
