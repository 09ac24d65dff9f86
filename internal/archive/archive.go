// Package archive copies the JSON record collections into an SQLite
// database for ad hoc SQL queries. The JSON files stay the source of truth.
package archive

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"support-chat/internal/records"
)

const batchSize = 200

// Source provides every record of the three collections.
type Source interface {
	Snapshot(ctx context.Context) (records.Snapshot, error)
}

type Archive struct {
	db *gorm.DB
}

// Counts is the number of rows per table.
type Counts struct {
	Messages int64 `json:"messages"`
	Sessions int64 `json:"sessions"`
	Surveys  int64 `json:"surveys"`
}

// Open creates or opens the database at dsn and migrates the tables.
func Open(dsn string) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&MessageRow{}, &SessionRow{}, &SurveyRow{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Export replaces every table's contents with the current collections in a
// single transaction.
func (a *Archive) Export(ctx context.Context, src Source) (Counts, error) {
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("read records: %w", err)
	}

	messages := make([]MessageRow, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		messages = append(messages, messageRow(m))
	}
	sessions := make([]SessionRow, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		sessions = append(sessions, sessionRow(s))
	}
	surveys := make([]SurveyRow, 0, len(snap.Surveys))
	for _, r := range snap.Surveys {
		surveys = append(surveys, surveyRow(r))
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceAll(tx, messages); err != nil {
			return fmt.Errorf("chat_messages: %w", err)
		}
		if err := replaceAll(tx, sessions); err != nil {
			return fmt.Errorf("chat_sessions: %w", err)
		}
		if err := replaceAll(tx, surveys); err != nil {
			return fmt.Errorf("survey_responses: %w", err)
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}

	return Counts{
		Messages: int64(len(messages)),
		Sessions: int64(len(sessions)),
		Surveys:  int64(len(surveys)),
	}, nil
}

func replaceAll[T any](tx *gorm.DB, rows []T) error {
	var zero T
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&zero).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

// Count reports the rows currently stored in each table.
func (a *Archive) Count(ctx context.Context) (Counts, error) {
	var c Counts
	db := a.db.WithContext(ctx)
	if err := db.Model(&MessageRow{}).Count(&c.Messages).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&SessionRow{}).Count(&c.Sessions).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&SurveyRow{}).Count(&c.Surveys).Error; err != nil {
		return Counts{}, err
	}
	return c, nil
}
