package quizd

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/errors"
)

// Handler exposes the session service wire contract over gin.
type Handler struct {
	svc        *Service
	adminToken string
}

func NewHandler(svc *Service, adminToken string) *Handler {
	return &Handler{svc: svc, adminToken: adminToken}
}

// Register mounts the play and admin routes on the engine.
func (h *Handler) Register(e *gin.Engine) {
	e.POST("/play/join/:sessionid", h.join)
	e.GET("/play/:playerid/status", h.status)
	e.GET("/play/:playerid/question", h.question)
	e.PUT("/play/:playerid/answer", h.submitAnswer)
	e.GET("/play/:playerid/answer", h.correctAnswers)
	e.GET("/play/:playerid/results", h.results)

	admin := e.Group("/admin", h.bearerAuth)
	admin.POST("/game/:gameid/mutate", h.mutate)
	admin.GET("/session/:sessionid/status", h.sessionStatus)
	admin.GET("/session/:sessionid/results", h.sessionResults)
}

// bearerAuth checks the static admin token. Token issuance and rotation are
// the surrounding platform's problem.
func (h *Handler) bearerAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != h.adminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
		return
	}

	c.Next()
}

func (h *Handler) join(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("sessionid"))
	if err != nil {
		abort(c, errors.New(errors.CodeNotFound, errors.WithMessagef("unknown session")))
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid body: %v", err)))
		return
	}

	playerID, err := h.svc.Join(c.Request.Context(), sessionID, req.Name)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playerId": playerID})
}

func (h *Handler) status(c *gin.Context) {
	playerID, ok := playerParam(c)
	if !ok {
		return
	}

	started, err := h.svc.Status(c.Request.Context(), playerID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"started": started})
}

func (h *Handler) question(c *gin.Context) {
	playerID, ok := playerParam(c)
	if !ok {
		return
	}

	q, err := h.svc.ActiveQuestion(c.Request.Context(), playerID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"question": q})
}

func (h *Handler) submitAnswer(c *gin.Context) {
	playerID, ok := playerParam(c)
	if !ok {
		return
	}

	var req struct {
		Answers []int64 `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid body: %v", err)))
		return
	}

	if err := h.svc.SubmitAnswers(c.Request.Context(), playerID, req.Answers); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) correctAnswers(c *gin.Context) {
	playerID, ok := playerParam(c)
	if !ok {
		return
	}

	ids, err := h.svc.CorrectAnswers(c.Request.Context(), playerID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answers": ids})
}

func (h *Handler) results(c *gin.Context) {
	playerID, ok := playerParam(c)
	if !ok {
		return
	}

	results, err := h.svc.PlayerResults(c.Request.Context(), playerID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) mutate(c *gin.Context) {
	var req struct {
		MutationType domain.Mutation `json:"mutationType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid body: %v", err)))
		return
	}

	sessionID, err := h.svc.Mutate(c.Request.Context(), c.Param("gameid"), req.MutationType)
	if err != nil {
		abort(c, err)
		return
	}

	if req.MutationType == domain.MutationStart {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"sessionId": sessionID}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{}})
}

func (h *Handler) sessionStatus(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	status, err := h.svc.AdminStatus(c.Request.Context(), sessionID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": status})
}

func (h *Handler) sessionResults(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	results, err := h.svc.AdminResults(c.Request.Context(), sessionID)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func playerParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("playerid"), 10, 64)
	if err != nil {
		abort(c, errors.New(errors.CodeNotFound, errors.WithMessagef("unknown player")))
		return 0, false
	}
	return id, true
}

func sessionParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("sessionid"))
	if err != nil {
		abort(c, errors.New(errors.CodeNotFound, errors.WithMessagef("unknown session")))
		return 0, false
	}
	return id, true
}

func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}
