package storage

import "time"

// Event is one proxied chat exchange: the last user message, the reply
// returned to the browser, and what the upstream reported about it.
// Events are appended in chronological order.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	SessionID         string    `json:"session_id,omitempty"`
	UserIP            string    `json:"user_ip"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Model             string    `json:"model,omitempty"`
	PromptTokens      int       `json:"prompt_tokens,omitempty"`
	CompletionTokens  int       `json:"completion_tokens,omitempty"`
	UpstreamStatus    int       `json:"upstream_status"`
	Error             string    `json:"error,omitempty"`
}

// Failed reports whether the upstream call did not produce a reply.
func (e Event) Failed() bool {
	return e.Error != "" || e.UpstreamStatus < 200 || e.UpstreamStatus >= 300
}

// Recorder abstracts persistence of interaction events.
// LoadInteractions should return events in chronological order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}

// Nop discards events. It is used when the interaction log is disabled.
type Nop struct{}

func (Nop) AppendInteraction(Event) error      { return nil }
func (Nop) LoadInteractions() ([]Event, error) { return nil, nil }
