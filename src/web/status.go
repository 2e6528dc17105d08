// Package web exposes a read-only status API for the running game so a
// table can follow party HP and turn order from another screen.
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"dndmaster-go/src/configs"
	"dndmaster-go/src/core/auth"
	"dndmaster-go/src/core/chat"
	"dndmaster-go/src/core/utils"
	"dndmaster-go/src/game"
	"dndmaster-go/src/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatusService serves session and party snapshots from the StatusBoard.
type StatusService struct {
	config *configs.Config
	logger *utils.TaggedLogger
	base   *utils.Logger
	board  *game.StatusBoard
	store  *store.TranscriptStore
	token  *auth.AuthToken
}

// NewStatusService wires the service. store may be nil when persistence
// is disabled.
func NewStatusService(config *configs.Config, logger *utils.Logger, board *game.StatusBoard, transcripts *store.TranscriptStore) *StatusService {
	s := &StatusService{
		config: config,
		logger: logger.WithTag("web"),
		base:   logger,
		board:  board,
		store:  transcripts,
	}
	if config.Web.Auth.Enabled {
		s.token = auth.NewAuthToken(config.Web.Auth.Secret)
	}
	return s
}

// Start registers the status routes on the shared API group.
func (s *StatusService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	group := apiGroup.Group("")
	if s.token != nil {
		group.Use(s.requireToken())
	}
	group.GET("/session", s.handleSession)
	group.GET("/party", s.handleParty)
	group.GET("/transcript/:session", s.handleTranscript)
	group.GET("/dialogue/:session", s.handleDialogue)
	s.logger.Info("status API registered under /api")
	return nil
}

// IssueToken mints a viewer token for the running session. Returns an
// empty token when auth is disabled.
func (s *StatusService) IssueToken(sessionID string) (string, error) {
	if s.token == nil {
		return "", nil
	}
	return s.token.GenerateToken(sessionID)
}

func (s *StatusService) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		ok, _, err := s.token.VerifyToken(token)
		if err != nil || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *StatusService) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.board.Session())
}

func (s *StatusService) handleParty(c *gin.Context) {
	players, active := s.board.Party()
	c.JSON(http.StatusOK, gin.H{
		"players": players,
		"active":  active,
	})
}

func (s *StatusService) handleTranscript(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence disabled"})
		return
	}
	entries, err := s.store.Entries(c.Param("session"))
	if err != nil {
		s.logger.Error("transcript query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// handleDialogue returns the dialogue history saved when the session ended,
// in the same message format the narrator consumed.
func (s *StatusService) handleDialogue(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence disabled"})
		return
	}
	dialogueJSON, err := s.store.Dialogue(c.Param("session"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}
		s.logger.Error("dialogue query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if dialogueJSON == "" {
		c.JSON(http.StatusOK, gin.H{"messages": []chat.Message{}})
		return
	}
	dm := chat.NewDialogueManager(s.base)
	if err := dm.LoadFromJSON(dialogueJSON); err != nil {
		s.logger.Error("dialogue decode failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "decode failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": dm.All()})
}
