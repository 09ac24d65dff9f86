package records

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"
)

// StatsWindowDays is the length of the trailing window used for daily counts.
const StatsWindowDays = 30

type DailyRatingCount struct {
	Date   string `json:"date"`
	Rating Rating `json:"rating"`
	Count  int    `json:"count"`
}

type SurveyStats struct {
	Total   int                `json:"total"`
	Ratings map[Rating]int     `json:"ratings"`
	Daily   []DailyRatingCount `json:"daily"`
}

type DailyRoleCount struct {
	Date  string `json:"date"`
	Role  Role   `json:"role"`
	Count int    `json:"count"`
}

type ChatStats struct {
	Total              int              `json:"total"`
	UserMessages       int              `json:"userMessages"`
	AssistantMessages  int              `json:"assistantMessages"`
	SurveyResponses    int              `json:"surveyResponses"`
	GoodRatings        int              `json:"goodRatings"`
	BadRatings         int              `json:"badRatings"`
	SurveyResponseRate float64          `json:"surveyResponseRate"`
	Daily              []DailyRoleCount `json:"daily"`
}

type dayKey[K comparable] struct {
	date string
	key  K
}

// dailyCounts groups records created at or after cutoff by UTC calendar date
// and key. A record exactly at cutoff is counted.
func dailyCounts[T any, K cmp.Ordered](items []T, cutoff time.Time, createdAt func(T) time.Time, key func(T) K) map[dayKey[K]]int {
	out := make(map[dayKey[K]]int)
	for _, it := range items {
		ts := createdAt(it)
		if ts.Before(cutoff) {
			continue
		}
		out[dayKey[K]{date: ts.UTC().Format(time.DateOnly), key: key(it)}]++
	}
	return out
}

func sortedDayKeys[K cmp.Ordered](m map[dayKey[K]]int) []dayKey[K] {
	keys := make([]dayKey[K], 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b dayKey[K]) int {
		if c := cmp.Compare(b.date, a.date); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	return keys
}

func (s *Store) windowStart() time.Time {
	return s.now().AddDate(0, 0, -StatsWindowDays)
}

func (s *Store) GetSurveyStats(ctx context.Context) (SurveyStats, error) {
	responses, err := s.loadSurveys(ctx)
	if err != nil {
		return SurveyStats{}, err
	}

	stats := SurveyStats{
		Total:   len(responses),
		Ratings: make(map[Rating]int),
		Daily:   []DailyRatingCount{},
	}
	for _, r := range responses {
		stats.Ratings[r.Rating]++
	}

	counts := dailyCounts(responses, s.windowStart(),
		func(r SurveyResponse) time.Time { return r.CreatedAt },
		func(r SurveyResponse) Rating { return r.Rating })
	for _, k := range sortedDayKeys(counts) {
		stats.Daily = append(stats.Daily, DailyRatingCount{Date: k.date, Rating: k.key, Count: counts[k]})
	}
	return stats, nil
}

func (s *Store) GetChatStats(ctx context.Context) (ChatStats, error) {
	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return ChatStats{}, err
	}

	stats := ChatStats{Total: len(msgs), Daily: []DailyRoleCount{}}
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			stats.UserMessages++
		case RoleAssistant:
			stats.AssistantMessages++
			if m.SurveyRating == "" {
				continue
			}
			stats.SurveyResponses++
			switch m.SurveyRating {
			case RatingGood:
				stats.GoodRatings++
			case RatingBad:
				stats.BadRatings++
			}
		}
	}
	stats.SurveyResponseRate = responseRate(stats.SurveyResponses, stats.AssistantMessages)

	counts := dailyCounts(msgs, s.windowStart(),
		func(m ChatMessage) time.Time { return m.CreatedAt },
		func(m ChatMessage) Role { return m.Role })
	for _, k := range sortedDayKeys(counts) {
		stats.Daily = append(stats.Daily, DailyRoleCount{Date: k.date, Role: k.key, Count: counts[k]})
	}
	return stats, nil
}

// responseRate is responses/total as a percentage with one decimal place.
func responseRate(responses, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(responses)/float64(total)*1000) / 10
}
