package controller

import (
	"context"
	"net/http"

	"codesandbox/internal/sandbox"
	"codesandbox/internal/sandbox/profile"
	"codesandbox/internal/sandbox/result"
	"codesandbox/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ExecutionService is the service surface used by the HTTP layer.
type ExecutionService interface {
	Execute(ctx context.Context, req sandbox.ExecutionRequest) (result.ExecutionResult, error)
	Languages() []profile.LanguageProfile
}

// SandboxController handles execution requests.
type SandboxController struct {
	svc ExecutionService
}

// NewSandboxController creates a new controller.
func NewSandboxController(svc ExecutionService) *SandboxController {
	return &SandboxController{svc: svc}
}

// Execute runs one submission. Every execution outcome is a 200 with the raw result body.
func (h *SandboxController) Execute(c *gin.Context) {
	var req sandbox.ExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	res, err := h.svc.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListLanguages returns the supported languages.
func (h *SandboxController) ListLanguages(c *gin.Context) {
	response.Success(c, h.svc.Languages())
}
