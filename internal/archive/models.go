package archive

import (
	"time"

	"support-chat/internal/records"
)

type MessageRow struct {
	ID                int        `gorm:"primaryKey;autoIncrement:false"`
	MessageID         string     `gorm:"type:varchar(128);index;not null"`
	Role              string     `gorm:"type:varchar(16);index;not null"`
	Content           string     `gorm:"type:text;not null"`
	CreatedAt         time.Time  `gorm:"index"`
	UserIP            string     `gorm:"type:varchar(255)"`
	UserAgent         string     `gorm:"type:text"`
	SessionID         string     `gorm:"type:varchar(128);index"`
	SurveyRating      string     `gorm:"type:varchar(8)"`
	SurveyRespondedAt *time.Time
}

func (MessageRow) TableName() string { return "chat_messages" }

type SessionRow struct {
	ID           string `gorm:"primaryKey;type:varchar(128)"`
	Title        string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	UserIP       string `gorm:"type:varchar(255)"`
}

func (SessionRow) TableName() string { return "chat_sessions" }

type SurveyRow struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	MessageID string    `gorm:"type:varchar(128);index;not null"`
	Rating    string    `gorm:"type:varchar(8);index;not null"`
	CreatedAt time.Time `gorm:"index"`
	UserIP    string    `gorm:"type:varchar(255)"`
	UserAgent string    `gorm:"type:text"`
}

func (SurveyRow) TableName() string { return "survey_responses" }

func messageRow(m records.ChatMessage) MessageRow {
	return MessageRow{
		ID:                m.ID,
		MessageID:         m.MessageID,
		Role:              string(m.Role),
		Content:           m.Content,
		CreatedAt:         m.CreatedAt,
		UserIP:            m.UserIP,
		UserAgent:         m.UserAgent,
		SessionID:         m.SessionID,
		SurveyRating:      string(m.SurveyRating),
		SurveyRespondedAt: m.SurveyRespondedAt,
	}
}

func sessionRow(s records.ChatSession) SessionRow {
	return SessionRow{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: s.MessageCount,
		UserIP:       s.UserIP,
	}
}

func surveyRow(r records.SurveyResponse) SurveyRow {
	return SurveyRow{
		ID:        r.ID,
		MessageID: r.MessageID,
		Rating:    string(r.Rating),
		CreatedAt: r.CreatedAt,
		UserIP:    r.UserIP,
		UserAgent: r.UserAgent,
	}
}
