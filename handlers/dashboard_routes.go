// handlers/dashboard_routes.go
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/PatGaj/SnakeCoder-sub000/middleware"
	"github.com/PatGaj/SnakeCoder-sub000/services"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

// SetupDashboardRoutes wires the home view and the daily plan bonus claim.
func SetupDashboardRoutes(app *fiber.App, dashboard *services.DashboardService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/dashboard", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		view, err := dashboard.Summary(userID)
		if err != nil {
			log.Printf("❌ Dashboard failed: user=%s err=%v", userID, err)
			return utils.Respond(c, err)
		}
		return c.JSON(view)
	})

	secured.Post("/dashboard/plan/claim", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		result, err := dashboard.ClaimPlanBonus(userID)
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(result)
	})
}
