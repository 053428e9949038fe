package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mkarlsen/signupd/pkg/response"
)

// Health returns a readiness payload including a database ping.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		response.Success(c, code, gin.H{"status": status})
	}
}
