package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthCheck reports service liveness along with the state of the
// database and cache connections.
func HealthCheck(db *gorm.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
			dbStatus = "unavailable"
		}

		redisStatus := "connected"
		if err := rdb.Ping(c.Context()).Err(); err != nil {
			redisStatus = "unavailable"
		}

		status := "ok"
		if dbStatus != "connected" || redisStatus != "connected" {
			status = "degraded"
		}

		return c.JSON(fiber.Map{
			"status":  status,
			"version": "1.0.0",
			"services": fiber.Map{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	}
}
