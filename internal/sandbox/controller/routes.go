// Package controller binds the sandbox and isolation operations to HTTP routes.
package controller

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the sandbox API on group. host may be nil when isolation is disabled.
// executeMiddleware runs only on the execute route.
func RegisterRoutes(group *gin.RouterGroup, sandboxCtl *SandboxController, host *HostController, executeMiddleware ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, executeMiddleware...), sandboxCtl.Execute)
	group.POST("/execute", handlers...)
	group.GET("/languages", sandboxCtl.ListLanguages)

	if host == nil {
		return
	}
	hostGroup := group.Group("/host")
	hostGroup.GET("/runtime", host.RuntimeStatus)
	hostGroup.GET("/status", host.HostStatus)
	hostGroup.POST("/start", host.StartHost)
	hostGroup.POST("/stop", host.StopHost)
}
