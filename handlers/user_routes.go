// handlers/user_routes.go
package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/PatGaj/SnakeCoder-sub000/middleware"
	"github.com/PatGaj/SnakeCoder-sub000/services"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

// SetupUserRoutes wires profile stats, the monthly ranking and the
// client analytics sink.
func SetupUserRoutes(app *fiber.App, users *services.UserService, analytics *services.AnalyticsService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/stats", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		view, err := users.Stats(userID)
		if err != nil {
			log.Printf("❌ Stats failed: user=%s err=%v", userID, err)
			return utils.Respond(c, err)
		}
		return c.JSON(view)
	})

	secured.Get("/ranking", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		view, err := users.Ranking(userID, limit)
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(view)
	})

	secured.Post("/analytics/log", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var body services.LogInput
		if err := c.BodyParser(&body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}
		if err := utils.ValidateStruct(body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}

		if err := analytics.Log(userID, body); err != nil {
			log.Printf("❌ Analytics log failed: user=%s event=%s err=%v", userID, body.Event, err)
			return utils.Respond(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"logged": true})
	})
}
