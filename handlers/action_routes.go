// handlers/action_routes.go
package handlers

import (
	"reward-collect-system/middleware"
	"reward-collect-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupActionRoutes wires the earn flows: scan, check-in, daily login and the
// video watch lifecycle. All routes require user context from the gateway.
func SetupActionRoutes(app *fiber.App, actionService *services.ActionService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/actions/scan", actionService.ScanCode)
	secured.Post("/actions/checkin", actionService.CheckIn)
	secured.Post("/actions/daily-login", actionService.DailyLogin)
	secured.Get("/actions/cooldown/:action", actionService.CooldownStatus)

	secured.Get("/locations", actionService.Locations)

	secured.Get("/videos", actionService.Videos)
	secured.Post("/videos/:id/session", actionService.StartVideoSession)
	secured.Patch("/videos/:id/watch", actionService.UpdateVideoWatch)
	secured.Delete("/videos/:id/session", actionService.EndVideoSession)
	secured.Get("/videos/:id/progress", actionService.VideoProgress)
	secured.Delete("/videos/:id/progress", actionService.ResetVideoProgress)
	secured.Post("/videos/:id/claim", actionService.ClaimVideoReward)
}
