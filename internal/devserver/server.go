// Package devserver emulates the translation backend for local
// development and tests: the REST endpoints and the realtime channel,
// answered from the built-in glossary.
package devserver

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/zeuzmakessoftware/babelfish/internal/domain"
	"github.com/zeuzmakessoftware/babelfish/internal/glossary"
)

// translateRequest is the bound and validated REST/channel payload.
type translateRequest struct {
	InputText       string `json:"input_text" validate:"required"`
	SessionID       string `json:"session_id"`
	BusinessContext string `json:"business_context"`
	UserAgent       string `json:"user_agent"`
}

type synthesizeRequest struct {
	Text       string  `json:"text" validate:"required,max=5000"`
	VoiceStyle string  `json:"voice_style"`
	Speed      float64 `json:"speed"`
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Server answers translation and synthesis requests from the glossary.
type Server struct {
	dict *glossary.Glossary
	log  *logrus.Logger

	upgrader websocket.Upgrader
	// channel message pacing, shortened in tests
	ProcessingNotice time.Duration
}

// New builds the emulator around a glossary (nil means the default table).
func New(dict *glossary.Glossary, log *logrus.Logger) *Server {
	if dict == nil {
		dict = glossary.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		dict: dict,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ProcessingNotice: 10 * time.Millisecond,
	}
}

// Routes returns a configured echo instance.
func (s *Server) Routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Validator = &requestValidator{validate: validator.New()}

	e.GET("/", s.handleHealth)
	e.POST("/api/translate", s.handleTranslate)
	e.POST("/api/voice/synthesize", s.handleSynthesize)
	e.GET("/ws/:session_id", s.handleChannel)
	return e
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Babelfish Dev Backend",
		"status":  "operational",
		"terms":   s.dict.Len(),
	})
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.answer(req))
}

func (s *Server) handleSynthesize(c echo.Context) error {
	var req synthesizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	// a silent mpeg-framed payload is enough for playback plumbing
	return c.Blob(http.StatusOK, "audio/mpeg", fakeMPEG(req.Text))
}

// handleChannel upgrades and serves the realtime protocol: a translate
// message gets a processing status then the completed translation;
// malformed input gets an error message.
func (s *Server) handleChannel(c echo.Context) error {
	sessionID := c.Param("session_id")
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.WithField("error", err).Warn("ws upgrade failed")
		return nil
	}
	defer func() { _ = conn.Close() }()
	s.log.WithField("session_id", sessionID).Info("channel client connected")

	for {
		var env struct {
			Type string           `json:"type"`
			Data translateRequest `json:"data"`
		}
		if err := conn.ReadJSON(&env); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Debug("channel client gone")
			}
			return nil
		}
		if env.Type != "translate" {
			continue
		}
		if env.Data.InputText == "" {
			_ = conn.WriteJSON(map[string]string{"type": "error", "message": "Translation failed: input_text is required"})
			continue
		}
		if env.Data.SessionID == "" {
			env.Data.SessionID = sessionID
		}
		_ = conn.WriteJSON(map[string]string{
			"type":    "status",
			"status":  "processing",
			"message": "Analyzing technical terminology...",
		})
		time.Sleep(s.ProcessingNotice)
		_ = conn.WriteJSON(map[string]any{
			"type": "translation_complete",
			"data": s.answer(env.Data),
		})
	}
}

// answer resolves a request against the glossary the way the real
// backend resolves against its knowledge base.
func (s *Server) answer(req translateRequest) domain.TranslationResult {
	start := time.Now()
	if e, ok := s.dict.Lookup(req.InputText); ok {
		return domain.TranslationResult{
			SessionID:        req.SessionID,
			Term:             e.Term,
			Explanation:      e.Explanation,
			Category:         e.Category,
			Confidence:       0.93,
			BusinessImpact:   e.BusinessImpact,
			RelatedTerms:     e.RelatedTerms,
			Sources:          []string{"internal_kb"},
			ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
		}
	}
	return domain.TranslationResult{
		SessionID:        req.SessionID,
		Term:             req.InputText,
		Explanation:      "No knowledge-base entry matched this phrase.",
		Category:         "General",
		Confidence:       0.4,
		BusinessImpact:   "Unknown",
		RelatedTerms:     []string{},
		Sources:          []string{"internal_kb"},
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// fakeMPEG produces a deterministic payload sized by the text length.
func fakeMPEG(text string) []byte {
	n := 64 + len(text)
	out := make([]byte, n)
	out[0], out[1] = 0xff, 0xfb // mpeg audio frame sync
	for i := 2; i < n; i++ {
		out[i] = byte(i % 251)
	}
	return out
}
