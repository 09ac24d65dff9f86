// Package chatproxy forwards chat requests from the browser either to a raw
// upstream chat API or to an LLM client, and logs every exchange.
package chatproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"support-chat/internal/llm"
	"support-chat/internal/storage"
)

const defaultTimeout = 60 * time.Second

// maxUpstreamBody caps how much of an upstream response is buffered.
const maxUpstreamBody = 8 << 20

// Result is a fully encoded HTTP response for the caller to write.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
}

// Meta describes the browser request for the interaction log.
type Meta struct {
	UserIP    string
	SessionID string
}

type Options struct {
	// UpstreamURL switches the proxy into raw mode.
	UpstreamURL  string
	APIKey       string
	Timeout      time.Duration
	HTTPClient   *http.Client
	LLM          llm.Client
	SystemPrompt string
	Recorder     storage.Recorder
	Log          logrus.FieldLogger
	Now          func() time.Time
}

type Proxy struct {
	upstreamURL  string
	apiKey       string
	timeout      time.Duration
	http         *http.Client
	llm          llm.Client
	systemPrompt string
	recorder     storage.Recorder
	log          logrus.FieldLogger
	now          func() time.Time
	maxBody      int64
}

func New(opts Options) *Proxy {
	p := &Proxy{
		upstreamURL:  opts.UpstreamURL,
		apiKey:       opts.APIKey,
		timeout:      opts.Timeout,
		http:         opts.HTTPClient,
		llm:          opts.LLM,
		systemPrompt: opts.SystemPrompt,
		recorder:     opts.Recorder,
		log:          opts.Log,
		now:          opts.Now,
		maxBody:      maxUpstreamBody,
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.http == nil {
		p.http = &http.Client{}
	}
	if p.recorder == nil {
		p.recorder = storage.Nop{}
	}
	if p.log == nil {
		p.log = logrus.StandardLogger()
	}
	if p.now == nil {
		p.now = func() time.Time { return time.Now().UTC() }
	}
	p.log = p.log.WithField("component", "chatproxy")
	return p
}

// Mode reports "upstream" or "llm".
func (p *Proxy) Mode() string {
	if p.upstreamURL != "" {
		return "upstream"
	}
	return "llm"
}

// Handle serves one chat request body and never returns a Go error; every
// failure is expressed as an HTTP result.
func (p *Proxy) Handle(ctx context.Context, body []byte, meta Meta) Result {
	if !json.Valid(body) {
		return errorResult(http.StatusBadRequest, "Invalid JSON body")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ev := storage.Event{
		Timestamp:   p.now(),
		SessionID:   meta.SessionID,
		UserIP:      meta.UserIP,
		UserMessage: lastUserMessage(body),
	}

	var res Result
	if p.upstreamURL != "" {
		res = p.forward(ctx, body, &ev)
	} else {
		res = p.generate(ctx, body, &ev)
	}
	ev.UpstreamStatus = res.Status

	if err := p.recorder.AppendInteraction(ev); err != nil {
		p.log.WithError(err).Warn("failed to append interaction")
	}
	return res
}

func (p *Proxy) forward(ctx context.Context, body []byte, ev *storage.Event) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.upstreamURL, bytes.NewReader(body))
	if err != nil {
		ev.Error = err.Error()
		return errorResult(http.StatusInternalServerError, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("api-key", p.apiKey)
	}
	ev.Model = stringField(body, "model")

	resp, err := p.http.Do(req)
	if err != nil {
		p.log.WithError(err).Error("upstream request failed")
		ev.Error = err.Error()
		return errorResult(http.StatusInternalServerError, err.Error())
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		p.log.WithError(err).Error("reading upstream response failed")
		ev.Error = err.Error()
		return errorResult(http.StatusInternalServerError, err.Error())
	}
	if int64(len(text)) > p.maxBody {
		p.log.WithField("limit", p.maxBody).Error("upstream response too large")
		ev.Error = "upstream response too large"
		return errorResult(http.StatusBadGateway, "Upstream response too large")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.WithField("status", resp.StatusCode).Warn("upstream returned an error")
		var parsed any
		if err := json.Unmarshal(text, &parsed); err != nil {
			ev.Error = truncate(string(text), 200)
			return Result{Status: resp.StatusCode, ContentType: contentType, Body: text}
		}
		detail := parsed
		if obj, ok := parsed.(map[string]any); ok && truthy(obj["error"]) {
			detail = obj["error"]
		}
		ev.Error = truncate(fmt.Sprint(detail), 200)
		return jsonResult(resp.StatusCode, map[string]any{"error": detail})
	}

	ev.AssistantResponse = extractReply(text)
	if json.Valid(text) {
		return Result{Status: http.StatusOK, ContentType: "application/json; charset=utf-8", Body: text}
	}
	return Result{Status: http.StatusOK, ContentType: contentType, Body: text}
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatReply struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
	Usage usage  `json:"usage"`
}

func (p *Proxy) generate(ctx context.Context, body []byte, ev *storage.Event) Result {
	if p.llm == nil {
		ev.Error = "no chat backend configured"
		return errorResult(http.StatusInternalServerError, "CHAT_API_URL is not configured")
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResult(http.StatusBadRequest, "Invalid JSON body")
	}
	if len(req.Messages) == 0 {
		ev.Error = "empty conversation"
		return errorResult(http.StatusBadRequest, "messages is required")
	}

	resp, err := p.llm.Generate(ctx, llm.WithSystemPrompt(p.systemPrompt, req.Messages))
	if err != nil {
		p.log.WithError(err).Error("llm generation failed")
		ev.Error = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			return errorResult(http.StatusGatewayTimeout, "upstream timed out")
		}
		return errorResult(http.StatusInternalServerError, err.Error())
	}

	ev.AssistantResponse = resp.Content
	ev.Model = resp.Model
	ev.PromptTokens = resp.PromptTokens
	ev.CompletionTokens = resp.CompletionTokens

	return jsonResult(http.StatusOK, chatReply{
		Reply: resp.Content,
		Model: resp.Model,
		Usage: usage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
			TotalTokens:      resp.TotalTokens,
		},
	})
}

func jsonResult(status int, v any) Result {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(http.StatusInternalServerError, "failed to encode response")
	}
	return Result{Status: status, ContentType: "application/json; charset=utf-8", Body: data}
}

func errorResult(status int, msg string) Result {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return Result{Status: status, ContentType: "application/json; charset=utf-8", Body: data}
}

// truthy follows JavaScript truthiness for decoded JSON values.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	default:
		return true
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func stringField(body []byte, key string) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

// lastUserMessage finds the newest user turn in {"messages": [...]} or falls
// back to a top-level "message" string.
func lastUserMessage(body []byte) string {
	var req struct {
		Messages []llm.Message `json:"messages"`
		Message  any           `json:"message"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if strings.EqualFold(req.Messages[i].Role, "user") {
			return req.Messages[i].Content
		}
	}
	if s, ok := req.Message.(string); ok {
		return s
	}
	return ""
}

// extractReply pulls the assistant text out of common chat API shapes:
// {"reply"}, {"message": {"content"}}, {"message": "..."},
// {"choices": [{"message": {"content"}}]} and {"content"}. Non-JSON bodies
// are returned as text.
func extractReply(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		if json.Valid(body) {
			return ""
		}
		return string(body)
	}
	if s, ok := obj["reply"].(string); ok {
		return s
	}
	switch m := obj["message"].(type) {
	case string:
		return m
	case map[string]any:
		if s, ok := m["content"].(string); ok {
			return s
		}
	}
	if choices, ok := obj["choices"].([]any); ok && len(choices) > 0 {
		if c, ok := choices[0].(map[string]any); ok {
			if m, ok := c["message"].(map[string]any); ok {
				if s, ok := m["content"].(string); ok {
					return s
				}
			}
		}
	}
	if s, ok := obj["content"].(string); ok {
		return s
	}
	return ""
}
