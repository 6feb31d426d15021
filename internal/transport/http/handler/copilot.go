package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aimy-copilot/internal/copilot"
	"aimy-copilot/internal/model"
	"aimy-copilot/internal/transport/http/middleware"
	"aimy-copilot/internal/transport/http/response"
)

type CopilotHandler struct {
	orchestrator *copilot.Orchestrator
}

func NewCopilotHandler(orchestrator *copilot.Orchestrator) *CopilotHandler {
	return &CopilotHandler{orchestrator: orchestrator}
}

type ChatRequest struct {
	Message     string `json:"message" binding:"required"`
	SessionID   string `json:"session_id" binding:"required,max=64"`
	PortfolioID string `json:"portfolio_id" binding:"max=64"`
	AssetID     string `json:"asset_id" binding:"max=64"`
}

// Chat runs one copilot turn. The pipeline itself never fails, so the only
// error paths here are request shape and auth.
func (h *CopilotHandler) Chat(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	sctx := model.SessionContext{
		UserID:      userID,
		SessionID:   req.SessionID,
		PortfolioID: req.PortfolioID,
		AssetID:     req.AssetID,
	}
	resp := h.orchestrator.HandleMessage(c.Request.Context(), req.Message, sctx)
	response.OK(c, resp)
}

func getUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserIDKey)
	return userID, userID != ""
}
