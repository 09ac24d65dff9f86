package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"support-chat/internal/chatproxy"
	"support-chat/internal/markdown"
	"support-chat/internal/records"
)

const (
	maxChatBody = 1 << 20

	defaultMessagesLimit = 100
	defaultSessionsLimit = 50
	defaultSurveysLimit  = 100
)

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// clientIP reads proxy headers the way the chat frontend's host sets them.
// The header value is stored as sent.
func clientIP(c *gin.Context) string {
	if v := c.GetHeader("X-Forwarded-For"); v != "" {
		return v
	}
	if v := c.GetHeader("X-Real-IP"); v != "" {
		return v
	}
	return "unknown"
}

func userAgent(c *gin.Context) string {
	if v := c.GetHeader("User-Agent"); v != "" {
		return v
	}
	return "unknown"
}

type pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// pageParams parses limit/offset, falling back to def for a missing or
// non-positive limit and to 0 for a missing or negative offset.
func pageParams(c *gin.Context, def int) (limit, offset int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = def
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "support-chat",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleChat(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxChatBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res := s.chat.Handle(c.Request.Context(), body, chatproxy.Meta{
		UserIP:    clientIP(c),
		SessionID: c.GetHeader("X-Session-Id"),
	})
	c.Data(res.Status, res.ContentType, res.Body)
}

type saveMessageReq struct {
	MessageID string `json:"messageId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleSaveMessage(c *gin.Context) {
	var req saveMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.MessageID == "" || req.Role == "" || req.Content == "" {
		fail(c, http.StatusBadRequest, "messageId, role, and content are required")
		return
	}
	role, err := records.ParseRole(req.Role)
	if err != nil {
		fail(c, http.StatusBadRequest, "role must be 'user' or 'assistant'")
		return
	}

	id, err := s.store.SaveChatMessage(c.Request.Context(), records.NewChatMessage{
		MessageID: req.MessageID,
		Role:      role,
		Content:   req.Content,
		UserIP:    clientIP(c),
		UserAgent: userAgent(c),
		SessionID: req.SessionID,
	})
	if err != nil {
		s.log.WithError(err).Error("failed to save chat message")
		fail(c, http.StatusInternalServerError, "Failed to process chat message")
		return
	}

	s.log.WithFields(logrus.Fields{"id": id, "message_id": req.MessageID, "role": role}).Debug("chat message saved")
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"messageId_db": id,
		"message":      "Chat message saved successfully",
	})
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit, offset := pageParams(c, defaultSessionsLimit)
	sessions, err := s.store.GetChatSessions(c.Request.Context(), limit, offset)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch chat sessions")
		fail(c, http.StatusInternalServerError, "Failed to fetch chat sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"sessions":   sessions,
		"pagination": pagination{Limit: limit, Offset: offset, Total: len(sessions)},
	})
}

type upsertSessionReq struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}

func (s *Server) handleUpsertSession(c *gin.Context) {
	var req upsertSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Title == "" {
		fail(c, http.StatusBadRequest, "sessionId and title are required")
		return
	}

	session, err := s.store.CreateOrUpdateSession(c.Request.Context(), req.SessionID, req.Title, clientIP(c))
	if err != nil {
		s.log.WithError(err).Error("failed to create/update session")
		fail(c, http.StatusInternalServerError, "Failed to create/update session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		fail(c, http.StatusBadRequest, "sessionId is required")
		return
	}

	ok, err := s.store.DeleteSession(c.Request.Context(), sessionID)
	if err != nil {
		s.log.WithError(err).Error("failed to delete session")
		fail(c, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	if !ok {
		fail(c, http.StatusNotFound, "Session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session deleted successfully"})
}

func (s *Server) handleSessionMessages(c *gin.Context) {
	sessionID := c.Param("sessionId")
	messages, err := s.store.GetChatMessagesBySession(c.Request.Context(), sessionID)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch session messages")
		fail(c, http.StatusInternalServerError, "Failed to fetch session messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": sessionID, "messages": messages})
}

type surveyReq struct {
	MessageID string `json:"messageId"`
	Rating    string `json:"rating"`
}

func (s *Server) handleSurvey(c *gin.Context) {
	var req surveyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.MessageID == "" || req.Rating == "" {
		fail(c, http.StatusBadRequest, "messageId and rating are required")
		return
	}
	rating, err := records.ParseRating(req.Rating)
	if err != nil {
		fail(c, http.StatusBadRequest, "rating must be 'good' or 'bad'")
		return
	}

	id, err := s.store.SaveSurveyResponse(c.Request.Context(), records.NewSurveyResponse{
		MessageID: req.MessageID,
		Rating:    rating,
		UserIP:    clientIP(c),
		UserAgent: userAgent(c),
	})
	if err != nil {
		if errors.Is(err, records.ErrInvalidRating) {
			fail(c, http.StatusBadRequest, "rating must be 'good' or 'bad'")
			return
		}
		s.log.WithError(err).Error("failed to save survey response")
		fail(c, http.StatusInternalServerError, "Failed to save survey response")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// adminMessage is a stored message plus its content rendered as HTML.
type adminMessage struct {
	records.ChatMessage
	ContentHTML string `json:"content_html"`
}

func (s *Server) handleAdminMessages(c *gin.Context) {
	limit, offset := pageParams(c, defaultMessagesLimit)
	messages, err := s.store.GetChatMessages(c.Request.Context(), limit, offset)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch chat messages")
		fail(c, http.StatusInternalServerError, "Failed to fetch chat messages")
		return
	}

	out := make([]adminMessage, 0, len(messages))
	for _, m := range messages {
		html, err := markdown.Render(m.Content)
		if err != nil {
			s.log.WithError(err).WithField("message_id", m.MessageID).Warn("failed to render message")
		}
		out = append(out, adminMessage{ChatMessage: m, ContentHTML: html})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"messages":   out,
		"pagination": pagination{Limit: limit, Offset: offset, Total: len(out)},
	})
}

func (s *Server) handleChatStats(c *gin.Context) {
	stats, err := s.store.GetChatStats(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("failed to fetch chat stats")
		fail(c, http.StatusInternalServerError, "Failed to fetch chat stats")
		return
	}
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		records.ChatStats
	}{true, stats})
}

func (s *Server) handleSurveyResponses(c *gin.Context) {
	limit, offset := pageParams(c, defaultSurveysLimit)
	responses, err := s.store.GetSurveyResponses(c.Request.Context(), limit, offset)
	if err != nil {
		s.log.WithError(err).Error("failed to fetch survey responses")
		fail(c, http.StatusInternalServerError, "Failed to fetch survey responses")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"responses":  responses,
		"pagination": pagination{Limit: limit, Offset: offset, Total: len(responses)},
	})
}

func (s *Server) handleSurveyStats(c *gin.Context) {
	stats, err := s.store.GetSurveyStats(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("failed to fetch survey stats")
		fail(c, http.StatusInternalServerError, "Failed to fetch survey stats")
		return
	}
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		records.SurveyStats
	}{true, stats})
}
