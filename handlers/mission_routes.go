// handlers/mission_routes.go
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/PatGaj/SnakeCoder-sub000/middleware"
	"github.com/PatGaj/SnakeCoder-sub000/services"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

// SetupMissionRoutes wires the mission catalog, the task editor endpoints,
// quizzes and articles. The gateway forwards paths like
// /api/v1/learn/s/missions/task/:id -> /missions/task/:id.
func SetupMissionRoutes(app *fiber.App, missions *services.MissionService, execution *services.ExecutionService, quizzes *services.QuizService, reviews *services.ReviewService) {
	// 🔐 Secured routes — require user context from the gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/missions", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		items, err := missions.ListCatalog(userID)
		if err != nil {
			log.Printf("❌ Catalog list failed: user=%s err=%v", userID, err)
			return utils.Respond(c, err)
		}
		return c.JSON(fiber.Map{"missions": items})
	})

	secured.Get("/missions/task/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		view, err := missions.GetTask(userID, missionID)
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(view)
	})

	secured.Patch("/missions/task/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		var body struct {
			UserCode string `json:"user_code" validate:"required"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}
		if err := utils.ValidateStruct(body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}

		if err := missions.SaveTaskCode(userID, missionID, body.UserCode); err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(fiber.Map{"saved": true})
	})

	secured.Post("/missions/task/:id/execute", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		var body services.ExecuteInput
		if err := c.BodyParser(&body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}
		if err := utils.ValidateStruct(body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}

		result, err := execution.Execute(c.Context(), userID, missionID, body)
		if err != nil {
			log.Printf("❌ Execute failed: user=%s mission=%s mode=%s err=%v", userID, missionID, body.Mode, err)
			return utils.Respond(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/missions/task/:id/review", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		remaining, limit, err := reviews.Quota(userID)
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(fiber.Map{"remaining": remaining, "limit": limit})
	})

	secured.Post("/missions/task/:id/review", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		var body services.ReviewInput
		if err := c.BodyParser(&body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}
		if err := utils.ValidateStruct(body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}
		if body.Locale == "" {
			body.Locale = c.Get("Accept-Language")
		}

		result, err := reviews.Review(c.Context(), userID, missionID, body)
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/missions/quiz/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		view, err := quizzes.GetQuiz(userID, missionID, c.Query("attempt"))
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(view)
	})

	secured.Post("/missions/quiz/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		var body services.QuizSubmitInput
		if err := c.BodyParser(&body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}
		if err := utils.ValidateStruct(body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}

		result, err := quizzes.SubmitQuiz(userID, missionID, body)
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/missions/article/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		view, err := missions.GetArticle(userID, missionID)
		if err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(view)
	})

	secured.Post("/missions/article/:id", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		missionID := c.Params("id")

		var body struct {
			TimeSpentSeconds *int    `json:"time_spent_seconds,omitempty" validate:"omitempty,min=0"`
			SessionID        *string `json:"session_id,omitempty"`
		}
		if err := c.BodyParser(&body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}
		if err := utils.ValidateStruct(body); err != nil {
			return utils.Respond(c, utils.ErrInvalidPayload())
		}

		if err := missions.CompleteArticle(userID, missionID, body.TimeSpentSeconds, body.SessionID); err != nil {
			return utils.Respond(c, err)
		}
		return c.JSON(fiber.Map{"completed": true})
	})
}
