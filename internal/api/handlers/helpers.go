package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func QueryInt64(c *fiber.Ctx, key string) int64 {
	return int64(c.QueryInt(key, 0))
}
