package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"support-chat/internal/records"
	"support-chat/internal/storage"
)

// DailyStats содержит статистику проксированных запросов за день
type DailyStats struct {
	Date             string         `json:"date"`
	TotalCalls       int            `json:"total_calls"`
	FailedCalls      int            `json:"failed_calls"`
	UniqueClients    int            `json:"unique_clients"`
	Sessions         int            `json:"sessions"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	ModelUsage       map[string]int `json:"model_usage"`
}

// AnalyzeDailyLogs counts the events that fall on the UTC calendar day of
// targetDate.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	d := targetDate.UTC()
	startOfDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:       startOfDay.Format(time.DateOnly),
		ModelUsage: make(map[string]int),
	}

	clients := make(map[string]struct{})
	sessions := make(map[string]struct{})

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}

		stats.TotalCalls++
		if event.Failed() {
			stats.FailedCalls++
		}
		if event.UserIP != "" {
			clients[event.UserIP] = struct{}{}
		}
		if event.SessionID != "" {
			sessions[event.SessionID] = struct{}{}
		}
		if event.Model != "" {
			stats.ModelUsage[event.Model]++
		}
		stats.PromptTokens += event.PromptTokens
		stats.CompletionTokens += event.CompletionTokens
	}

	stats.UniqueClients = len(clients)
	stats.Sessions = len(sessions)
	return stats
}

// Report combines one day of proxy traffic with the record store totals.
type Report struct {
	Traffic *DailyStats         `json:"traffic"`
	Chat    records.ChatStats   `json:"chat"`
	Survey  records.SurveyStats `json:"survey"`
}

func BuildReport(traffic *DailyStats, chat records.ChatStats, survey records.SurveyStats) Report {
	return Report{Traffic: traffic, Chat: chat, Survey: survey}
}

// StatsSource is the part of records.Store a report reads.
type StatsSource interface {
	GetChatStats(ctx context.Context) (records.ChatStats, error)
	GetSurveyStats(ctx context.Context) (records.SurveyStats, error)
}

// Collect builds the report for the UTC day containing day.
func Collect(ctx context.Context, src StatsSource, rec storage.Recorder, day time.Time) (Report, error) {
	events, err := rec.LoadInteractions()
	if err != nil {
		return Report{}, fmt.Errorf("load interactions: %w", err)
	}
	chat, err := src.GetChatStats(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("chat stats: %w", err)
	}
	survey, err := src.GetSurveyStats(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("survey stats: %w", err)
	}
	return BuildReport(AnalyzeDailyLogs(events, day), chat, survey), nil
}

// Summary renders the report as plain text for the log.
func (r Report) Summary() string {
	var b strings.Builder
	t := r.Traffic

	fmt.Fprintf(&b, "Support chat report for %s\n\n", t.Date)
	fmt.Fprintf(&b, "Proxy traffic:\n")
	fmt.Fprintf(&b, "- calls: %d (failed: %d)\n", t.TotalCalls, t.FailedCalls)
	fmt.Fprintf(&b, "- unique clients: %d, sessions: %d\n", t.UniqueClients, t.Sessions)
	fmt.Fprintf(&b, "- tokens: %d prompt / %d completion\n", t.PromptTokens, t.CompletionTokens)

	if len(t.ModelUsage) > 0 {
		models := make([]string, 0, len(t.ModelUsage))
		for m := range t.ModelUsage {
			models = append(models, m)
		}
		slices.Sort(models)
		fmt.Fprintf(&b, "- models:\n")
		for _, m := range models {
			fmt.Fprintf(&b, "  - %s: %d\n", m, t.ModelUsage[m])
		}
	}

	fmt.Fprintf(&b, "\nStored messages: %d (user: %d, assistant: %d)\n",
		r.Chat.Total, r.Chat.UserMessages, r.Chat.AssistantMessages)
	fmt.Fprintf(&b, "Rated replies: %d (good: %d, bad: %d), response rate %.1f%%\n",
		r.Chat.SurveyResponses, r.Chat.GoodRatings, r.Chat.BadRatings, r.Chat.SurveyResponseRate)
	fmt.Fprintf(&b, "Survey responses: %d (good: %d, bad: %d)\n",
		r.Survey.Total, r.Survey.Ratings[records.RatingGood], r.Survey.Ratings[records.RatingBad])

	return b.String()
}

// ToJSON сериализует отчет в JSON для детального анализа
func (r Report) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
