package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hyuon7877/onesquare-sub001/internal/version"
)

// HealthHandler reports liveness and the running version.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Full(),
	})
}
