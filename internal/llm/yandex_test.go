package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/Morwran/yagpt"
)

type fakeYaGPT struct {
	gotToken string
	gotMsgs  []yagpt.Message
	resp     *yagpt.CompletionResponse
	err      error
}

func (f *fakeYaGPT) CompletionWithCtx(_ context.Context, iamTok string, m []yagpt.Message) (*yagpt.CompletionResponse, error) {
	f.gotToken = iamTok
	f.gotMsgs = m
	return f.resp, f.err
}

func (f *fakeYaGPT) Completion(iamTok string, m []yagpt.Message) (*yagpt.CompletionResponse, error) {
	return f.CompletionWithCtx(context.Background(), iamTok, m)
}

func TestYandexClient_Generate(t *testing.T) {
	fake := &fakeYaGPT{resp: &yagpt.CompletionResponse{
		Alternatives: []yagpt.Alternative{{Message: yagpt.Message{Role: "assistant", Content: "Здравствуйте!"}}},
		Usage:        yagpt.ContentUsage{InputTextTokens: 12, CompletionTokens: 4, TotalTokens: 16},
	}}
	c := &YandexClient{ya: fake, iamToken: "iam-token"}

	msgs := WithSystemPrompt("be brief", []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "help"},
	})
	resp, err := c.Generate(context.Background(), msgs)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if fake.gotToken != "iam-token" {
		t.Errorf("iam token = %q", fake.gotToken)
	}
	want := []yagpt.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "help"},
	}
	if len(fake.gotMsgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(fake.gotMsgs), len(want))
	}
	for i := range want {
		if fake.gotMsgs[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, fake.gotMsgs[i], want[i])
		}
	}

	if resp.Content != "Здравствуйте!" || resp.Model != yagpt.YaModelLite {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.PromptTokens != 12 || resp.CompletionTokens != 4 || resp.TotalTokens != 16 {
		t.Errorf("unexpected usage: %+v", resp)
	}
}

func TestYandexClient_GenerateErrors(t *testing.T) {
	cases := map[string]*fakeYaGPT{
		"transport": {err: errors.New("unavailable")},
		"nil":       {},
		"empty":     {resp: &yagpt.CompletionResponse{}},
	}
	for name, fake := range cases {
		c := &YandexClient{ya: fake, iamToken: "t"}
		if _, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
