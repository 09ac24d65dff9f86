package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"support-chat/internal/chatproxy"
	"support-chat/internal/records"
)

// RecordStore is the part of records.Store the handlers use.
type RecordStore interface {
	SaveChatMessage(ctx context.Context, in records.NewChatMessage) (int, error)
	GetChatMessages(ctx context.Context, limit, offset int) ([]records.ChatMessage, error)
	GetChatMessagesBySession(ctx context.Context, sessionID string) ([]records.ChatMessage, error)
	CreateOrUpdateSession(ctx context.Context, sessionID, title, userIP string) (records.ChatSession, error)
	GetChatSessions(ctx context.Context, limit, offset int) ([]records.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	SaveSurveyResponse(ctx context.Context, in records.NewSurveyResponse) (int, error)
	GetSurveyResponses(ctx context.Context, limit, offset int) ([]records.SurveyResponse, error)
	GetSurveyStats(ctx context.Context) (records.SurveyStats, error)
	GetChatStats(ctx context.Context) (records.ChatStats, error)
}

// ChatHandler answers POST /api/chat.
type ChatHandler interface {
	Handle(ctx context.Context, body []byte, meta chatproxy.Meta) chatproxy.Result
}

type Deps struct {
	Addr  string
	Store RecordStore
	Chat  ChatHandler
	Log   logrus.FieldLogger
	// WriteTimeout must exceed the chat upstream timeout.
	WriteTimeout time.Duration
}

// Server представляет HTTP сервер чата и админки
type Server struct {
	store     RecordStore
	chat      ChatHandler
	log       logrus.FieldLogger
	engine    *gin.Engine
	server    *http.Server
	startTime time.Time
}

func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		store:     d.Store,
		chat:      d.Chat,
		log:       log.WithField("component", "web"),
		startTime: time.Now(),
	}
	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}
	s.engine = s.routes()
	s.server = &http.Server{
		Addr:              d.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestID())
	r.Use(AccessLog(s.log))
	r.Use(Recovery(s.log))

	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "Not found") })
	r.NoMethod(func(c *gin.Context) { fail(c, http.StatusMethodNotAllowed, "Method not allowed") })

	r.GET("/api/status", s.handleStatus)
	r.GET("/admin", s.handleAdmin)

	api := r.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/chat/messages", s.handleSaveMessage)
	api.GET("/chat/sessions", s.handleListSessions)
	api.POST("/chat/sessions", s.handleUpsertSession)
	api.DELETE("/chat/sessions", s.handleDeleteSession)
	api.GET("/chat/sessions/:sessionId", s.handleSessionMessages)
	api.POST("/survey", s.handleSurvey)

	admin := api.Group("/admin")
	admin.GET("/chat-messages", s.handleAdminMessages)
	admin.GET("/chat-stats", s.handleChatStats)
	admin.GET("/survey-responses", s.handleSurveyResponses)
	admin.GET("/survey-stats", s.handleSurveyStats)

	return r
}

func (s *Server) Handler() http.Handler { return s.engine }

// Start запускает веб-сервер и блокируется до вызова Stop.
func (s *Server) Start() error {
	s.log.WithField("addr", s.server.Addr).Info("starting http server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает веб-сервер
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
