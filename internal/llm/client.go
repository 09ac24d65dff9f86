package llm

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// WithSystemPrompt prepends a system message unless prompt is empty or the
// conversation already starts with one.
func WithSystemPrompt(prompt string, messages []Message) []Message {
	if prompt == "" || (len(messages) > 0 && messages[0].Role == "system") {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: prompt})
	return append(out, messages...)
}
