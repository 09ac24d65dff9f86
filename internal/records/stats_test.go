package records

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestGetSurveyStats_WindowAndGrouping(t *testing.T) {
	s, clk := newTestStore(t)
	now := clk.Now()
	boundary := now.AddDate(0, 0, -StatsWindowDays)

	writeJSON(t, filepath.Join(s.Dir(), SurveysFile), []SurveyResponse{
		{ID: 1, MessageID: "a", Rating: RatingGood, CreatedAt: now.Add(-time.Hour)},
		{ID: 2, MessageID: "b", Rating: RatingGood, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 3, MessageID: "c", Rating: RatingBad, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: 4, MessageID: "d", Rating: RatingBad, CreatedAt: now.AddDate(0, 0, -2)},
		{ID: 5, MessageID: "e", Rating: RatingGood, CreatedAt: boundary},
		{ID: 6, MessageID: "f", Rating: RatingGood, CreatedAt: boundary.Add(-time.Second)},
	})

	stats, err := s.GetSurveyStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 6 {
		t.Fatalf("total: want 6, got %d", stats.Total)
	}
	if stats.Ratings[RatingGood] != 4 || stats.Ratings[RatingBad] != 2 {
		t.Fatalf("ratings: %+v", stats.Ratings)
	}

	want := []DailyRatingCount{
		{Date: "2024-05-10", Rating: RatingBad, Count: 1},
		{Date: "2024-05-10", Rating: RatingGood, Count: 2},
		{Date: "2024-05-08", Rating: RatingBad, Count: 1},
		// exactly 30 days old is inside the window
		{Date: "2024-04-10", Rating: RatingGood, Count: 1},
	}
	if len(stats.Daily) != len(want) {
		t.Fatalf("daily: want %+v, got %+v", want, stats.Daily)
	}
	for i := range want {
		if stats.Daily[i] != want[i] {
			t.Fatalf("daily[%d]: want %+v, got %+v", i, want[i], stats.Daily[i])
		}
	}
}

func TestGetSurveyStats_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	stats, err := s.GetSurveyStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 0 || len(stats.Ratings) != 0 || stats.Daily == nil || len(stats.Daily) != 0 {
		t.Fatalf("unexpected empty stats: %+v", stats)
	}
}

func TestGetChatStats(t *testing.T) {
	s, clk := newTestStore(t)
	now := clk.Now()

	writeJSON(t, filepath.Join(s.Dir(), MessagesFile), []ChatMessage{
		{ID: 1, MessageID: "u1", Role: RoleUser, CreatedAt: now.Add(-time.Minute)},
		{ID: 2, MessageID: "a1", Role: RoleAssistant, CreatedAt: now.Add(-time.Minute), SurveyRating: RatingGood},
		{ID: 3, MessageID: "u2", Role: RoleUser, CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 4, MessageID: "a2", Role: RoleAssistant, CreatedAt: now.AddDate(0, 0, -1), SurveyRating: RatingBad},
		{ID: 5, MessageID: "a3", Role: RoleAssistant, CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 6, MessageID: "old", Role: RoleUser, CreatedAt: now.AddDate(0, 0, -45)},
		// a rated user message is not a survey response
		{ID: 7, MessageID: "u3", Role: RoleUser, CreatedAt: now, SurveyRating: RatingGood},
	})

	stats, err := s.GetChatStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 7 || stats.UserMessages != 4 || stats.AssistantMessages != 3 {
		t.Fatalf("counts: %+v", stats)
	}
	if stats.SurveyResponses != 2 || stats.GoodRatings != 1 || stats.BadRatings != 1 {
		t.Fatalf("ratings: %+v", stats)
	}
	if stats.SurveyResponseRate != 66.7 {
		t.Fatalf("rate: want 66.7, got %v", stats.SurveyResponseRate)
	}

	want := []DailyRoleCount{
		{Date: "2024-05-10", Role: RoleAssistant, Count: 1},
		{Date: "2024-05-10", Role: RoleUser, Count: 2},
		{Date: "2024-05-09", Role: RoleAssistant, Count: 2},
		{Date: "2024-05-09", Role: RoleUser, Count: 1},
	}
	if len(stats.Daily) != len(want) {
		t.Fatalf("daily: want %+v, got %+v", want, stats.Daily)
	}
	for i := range want {
		if stats.Daily[i] != want[i] {
			t.Fatalf("daily[%d]: want %+v, got %+v", i, want[i], stats.Daily[i])
		}
	}
}

func TestGetChatStats_NoAssistantMessages(t *testing.T) {
	s, _ := newTestStore(t)
	mustSave(t, s, NewChatMessage{MessageID: "u", Role: RoleUser, Content: "hi"})

	stats, err := s.GetChatStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.SurveyResponseRate != 0 {
		t.Fatalf("rate: want 0, got %v", stats.SurveyResponseRate)
	}
}

func TestResponseRate(t *testing.T) {
	cases := []struct {
		responses, total int
		want             float64
	}{
		{0, 0, 0},
		{1, 1, 100},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
	}
	for _, c := range cases {
		if got := responseRate(c.responses, c.total); got != c.want {
			t.Errorf("responseRate(%d, %d) = %v, want %v", c.responses, c.total, got, c.want)
		}
	}
}
