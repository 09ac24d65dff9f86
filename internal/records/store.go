package records

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	MessagesFile = "chat-messages.json"
	SessionsFile = "chat-sessions.json"
	SurveysFile  = "survey-responses.json"

	DefaultMessageLimit = 100
	DefaultSessionLimit = 50
	DefaultSurveyLimit  = 100
)

// Store persists chat messages, chat sessions and survey responses as three
// JSON array files under one directory. Every mutation rewrites the whole
// file; mutations on the same collection are serialized in-process.
//
// Lock order is messages, sessions, surveys.
type Store struct {
	dir      string
	messages *collection[ChatMessage]
	sessions *collection[ChatSession]
	surveys  *collection[SurveyResponse]

	log    logrus.FieldLogger
	now    func() time.Time
	strict bool
}

type Option func(*Store)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for timestamps and the statistics window.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStrictLoad makes read operations return ErrCorrupt instead of treating
// an unreadable file as an empty collection.
func WithStrictLoad(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		messages: newCollection[ChatMessage](filepath.Join(dir, MessagesFile)),
		sessions: newCollection[ChatSession](filepath.Join(dir, SessionsFile)),
		surveys:  newCollection[SurveyResponse](filepath.Join(dir, SurveysFile)),
		log:      logrus.StandardLogger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Dir() string { return s.dir }

// readAll loads a collection for a query. The caller holds c.mu.
func readAll[T any](s *Store, c *collection[T]) ([]T, error) {
	items, err := c.loadUnlocked()
	if err == nil {
		return items, nil
	}
	s.log.WithError(err).WithField("file", c.path).Error("failed to load collection")
	if s.strict {
		return nil, err
	}
	return []T{}, nil
}

func nextID[T any](items []T, id func(T) int) int {
	hi := 0
	for _, it := range items {
		if v := id(it); v > hi {
			hi = v
		}
	}
	return hi + 1
}

func paginate[T any](items []T, limit, offset, def int) []T {
	if limit <= 0 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	if limit > len(items)-offset {
		limit = len(items) - offset
	}
	return items[offset : offset+limit]
}

// SaveChatMessage appends a message and returns its assigned id.
func (s *Store) SaveChatMessage(ctx context.Context, in NewChatMessage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := ParseRole(string(in.Role)); err != nil {
		return 0, err
	}

	s.messages.mu.Lock()
	defer s.messages.mu.Unlock()

	msgs, err := s.messages.loadUnlocked()
	if err != nil {
		return 0, fmt.Errorf("save chat message: %w", err)
	}
	id := nextID(msgs, func(m ChatMessage) int { return m.ID })
	msgs = append(msgs, ChatMessage{
		ID:        id,
		MessageID: in.MessageID,
		Role:      in.Role,
		Content:   in.Content,
		CreatedAt: s.now(),
		UserIP:    orUnknown(in.UserIP),
		UserAgent: orUnknown(in.UserAgent),
		SessionID: in.SessionID,
	})
	if err := s.messages.saveUnlocked(msgs); err != nil {
		return 0, fmt.Errorf("save chat message: %w", err)
	}
	return id, nil
}

// UpdateChatMessageWithSurvey stores a rating on the first message whose
// message_id matches. It reports false, without writing, when none does.
func (s *Store) UpdateChatMessageWithSurvey(ctx context.Context, messageID string, rating Rating) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := ParseRating(string(rating)); err != nil {
		return false, err
	}

	s.messages.mu.Lock()
	defer s.messages.mu.Unlock()

	msgs, err := s.messages.loadUnlocked()
	if err != nil {
		return false, fmt.Errorf("update chat message survey: %w", err)
	}
	idx := slices.IndexFunc(msgs, func(m ChatMessage) bool { return m.MessageID == messageID })
	if idx == -1 {
		return false, nil
	}
	at := s.now()
	msgs[idx].SurveyRating = rating
	msgs[idx].SurveyRespondedAt = &at
	if err := s.messages.saveUnlocked(msgs); err != nil {
		return false, fmt.Errorf("update chat message survey: %w", err)
	}
	return true, nil
}

// CreateOrUpdateSession creates the session on first reference. Later calls
// overwrite the title, refresh updated_at and recount the session's messages.
func (s *Store) CreateOrUpdateSession(ctx context.Context, sessionID, title, userIP string) (ChatSession, error) {
	if err := ctx.Err(); err != nil {
		return ChatSession{}, err
	}

	s.messages.mu.Lock()
	defer s.messages.mu.Unlock()
	s.sessions.mu.Lock()
	defer s.sessions.mu.Unlock()

	sessions, err := s.sessions.loadUnlocked()
	if err != nil {
		return ChatSession{}, fmt.Errorf("create or update session: %w", err)
	}

	now := s.now()
	var out ChatSession
	if idx := slices.IndexFunc(sessions, func(cs ChatSession) bool { return cs.ID == sessionID }); idx >= 0 {
		msgs, err := readAll(s, s.messages)
		if err != nil {
			return ChatSession{}, fmt.Errorf("create or update session: %w", err)
		}
		count := 0
		for _, m := range msgs {
			if m.SessionID == sessionID {
				count++
			}
		}
		sessions[idx].Title = title
		sessions[idx].UpdatedAt = now
		sessions[idx].MessageCount = count
		out = sessions[idx]
	} else {
		out = ChatSession{
			ID:        sessionID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
			UserIP:    orUnknown(userIP),
		}
		sessions = append(sessions, out)
	}

	if err := s.sessions.saveUnlocked(sessions); err != nil {
		return ChatSession{}, fmt.Errorf("create or update session: %w", err)
	}
	return out, nil
}

// DeleteSession removes a session and all of its messages. The two files are
// written independently, messages first; a failure after the first write
// leaves the session in place with its messages already gone.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.messages.mu.Lock()
	defer s.messages.mu.Unlock()
	s.sessions.mu.Lock()
	defer s.sessions.mu.Unlock()

	sessions, err := s.sessions.loadUnlocked()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	idx := slices.IndexFunc(sessions, func(cs ChatSession) bool { return cs.ID == sessionID })
	if idx == -1 {
		return false, nil
	}

	msgs, err := s.messages.loadUnlocked()
	if err != nil {
		return false, fmt.Errorf("delete session messages: %w", err)
	}
	kept := slices.DeleteFunc(msgs, func(m ChatMessage) bool { return m.SessionID == sessionID })
	if err := s.messages.saveUnlocked(kept); err != nil {
		return false, fmt.Errorf("delete session messages: %w", err)
	}

	sessions = slices.Delete(sessions, idx, idx+1)
	if err := s.sessions.saveUnlocked(sessions); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return true, nil
}

// SaveSurveyResponse rates the matching message, if any, and appends a survey
// response record. A failed message write aborts before the survey is stored.
// It returns the new record's id.
func (s *Store) SaveSurveyResponse(ctx context.Context, in NewSurveyResponse) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := ParseRating(string(in.Rating)); err != nil {
		return 0, err
	}

	found, err := s.UpdateChatMessageWithSurvey(ctx, in.MessageID, in.Rating)
	switch {
	case err != nil && errors.Is(err, ErrCorrupt) && !s.strict:
		// an unreadable messages file holds no message to rate
		s.log.WithError(err).WithField("message_id", in.MessageID).Warn("failed to attach survey rating to message")
	case err != nil:
		return 0, fmt.Errorf("save survey response: %w", err)
	case !found:
		s.log.WithField("message_id", in.MessageID).Debug("survey response for unknown message")
	}

	s.surveys.mu.Lock()
	defer s.surveys.mu.Unlock()

	responses, err := s.surveys.loadUnlocked()
	if err != nil {
		return 0, fmt.Errorf("save survey response: %w", err)
	}
	id := nextID(responses, func(r SurveyResponse) int { return r.ID })
	responses = append(responses, SurveyResponse{
		ID:        id,
		MessageID: in.MessageID,
		Rating:    in.Rating,
		CreatedAt: s.now(),
		UserIP:    orUnknown(in.UserIP),
		UserAgent: orUnknown(in.UserAgent),
	})
	if err := s.surveys.saveUnlocked(responses); err != nil {
		return 0, fmt.Errorf("save survey response: %w", err)
	}
	return id, nil
}

func (s *Store) loadMessages(ctx context.Context) ([]ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.messages.mu.Lock()
	defer s.messages.mu.Unlock()
	return readAll(s, s.messages)
}

func (s *Store) loadSessions(ctx context.Context) ([]ChatSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.sessions.mu.Lock()
	defer s.sessions.mu.Unlock()
	return readAll(s, s.sessions)
}

func (s *Store) loadSurveys(ctx context.Context) ([]SurveyResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.surveys.mu.Lock()
	defer s.surveys.mu.Unlock()
	return readAll(s, s.surveys)
}

// GetChatMessages returns messages newest first.
func (s *Store) GetChatMessages(ctx context.Context, limit, offset int) ([]ChatMessage, error) {
	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(msgs, func(a, b ChatMessage) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(msgs, limit, offset, DefaultMessageLimit), nil
}

// GetChatMessagesBySession returns a session's messages oldest first.
func (s *Store) GetChatMessagesBySession(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(msgs, func(m ChatMessage) bool { return m.SessionID != sessionID })
	slices.SortStableFunc(out, func(a, b ChatMessage) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// GetChatSessions returns sessions most recently updated first.
func (s *Store) GetChatSessions(ctx context.Context, limit, offset int) ([]ChatSession, error) {
	sessions, err := s.loadSessions(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(sessions, func(a, b ChatSession) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return paginate(sessions, limit, offset, DefaultSessionLimit), nil
}

// GetSurveyResponses returns survey responses newest first.
func (s *Store) GetSurveyResponses(ctx context.Context, limit, offset int) ([]SurveyResponse, error) {
	responses, err := s.loadSurveys(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(responses, func(a, b SurveyResponse) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(responses, limit, offset, DefaultSurveyLimit), nil
}

// Snapshot is every record of the three collections in file order.
type Snapshot struct {
	Messages []ChatMessage
	Sessions []ChatSession
	Surveys  []SurveyResponse
}

func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	msgs, err := s.loadMessages(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sessions, err := s.loadSessions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	surveys, err := s.loadSurveys(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Messages: msgs, Sessions: sessions, Surveys: surveys}, nil
}
