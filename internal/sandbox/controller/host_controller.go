package controller

import (
	"context"
	"net/http"

	"codesandbox/internal/isolation"

	"github.com/gin-gonic/gin"
)

// HostManager is the isolation control surface.
type HostManager interface {
	CheckRuntimeStatus(ctx context.Context) isolation.Status
	CheckExecutionHostStatus(ctx context.Context) isolation.Status
	StartExecutionHost(ctx context.Context) isolation.ActionResult
	StopExecutionHost(ctx context.Context) isolation.ActionResult
}

// HostController exposes execution host lifecycle operations.
type HostController struct {
	mgr HostManager
}

func NewHostController(mgr HostManager) *HostController {
	return &HostController{mgr: mgr}
}

func (h *HostController) RuntimeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.CheckRuntimeStatus(c.Request.Context()))
}

func (h *HostController) HostStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.CheckExecutionHostStatus(c.Request.Context()))
}

func (h *HostController) StartHost(c *gin.Context) {
	c.JSON(actionStatus(h.mgr.StartExecutionHost(c.Request.Context())))
}

func (h *HostController) StopHost(c *gin.Context) {
	c.JSON(actionStatus(h.mgr.StopExecutionHost(c.Request.Context())))
}

func actionStatus(res isolation.ActionResult) (int, isolation.ActionResult) {
	if res.Success {
		return http.StatusOK, res
	}
	return http.StatusServiceUnavailable, res
}
