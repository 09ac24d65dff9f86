package records

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCorrupt is returned when a collection file exists but cannot be parsed.
	ErrCorrupt       = errors.New("records: corrupt collection file")
	ErrInvalidRole   = errors.New("records: role must be 'user' or 'assistant'")
	ErrInvalidRating = errors.New("records: rating must be 'good' or 'bad'")
)

const unknown = "unknown"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

type Rating string

const (
	RatingGood Rating = "good"
	RatingBad  Rating = "bad"
)

func ParseRating(s string) (Rating, error) {
	switch r := Rating(s); r {
	case RatingGood, RatingBad:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// ChatMessage is one turn of a conversation as stored in chat-messages.json.
type ChatMessage struct {
	ID                int        `json:"id"`
	MessageID         string     `json:"message_id"`
	Role              Role       `json:"role"`
	Content           string     `json:"content"`
	CreatedAt         time.Time  `json:"created_at"`
	UserIP            string     `json:"user_ip"`
	UserAgent         string     `json:"user_agent"`
	SessionID         string     `json:"session_id,omitempty"`
	SurveyRating      Rating     `json:"survey_rating,omitempty"`
	SurveyRespondedAt *time.Time `json:"survey_responded_at,omitempty"`
}

// ChatSession groups messages sharing a caller-assigned id.
// MessageCount is a snapshot taken at the last update, not a live counter.
type ChatSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	UserIP       string    `json:"user_ip"`
}

// SurveyResponse is the standalone rating record kept next to the rating
// embedded in ChatMessage.
type SurveyResponse struct {
	ID        int       `json:"id"`
	MessageID string    `json:"message_id"`
	Rating    Rating    `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UserIP    string    `json:"user_ip"`
	UserAgent string    `json:"user_agent"`
}

// NewChatMessage holds the caller-supplied fields of SaveChatMessage.
type NewChatMessage struct {
	MessageID string
	Role      Role
	Content   string
	UserIP    string
	UserAgent string
	SessionID string
}

// NewSurveyResponse holds the caller-supplied fields of SaveSurveyResponse.
type NewSurveyResponse struct {
	MessageID string
	Rating    Rating
	UserIP    string
	UserAgent string
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
