// handlers/collection_routes.go
package handlers

import (
	"reward-collect-system/middleware"
	"reward-collect-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupCollectionRoutes wires the ledger surface: listing, deletion,
// export/import, profile and the live reward stream.
func SetupCollectionRoutes(app *fiber.App, collectionService *services.CollectionService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user/rewards", collectionService.GetRewards)
	secured.Get("/user/rewards/counts", collectionService.GetCounts)
	secured.Get("/user/rewards/stream", collectionService.StreamRewardsSSE)
	secured.Delete("/user/rewards/:id", collectionService.DeleteReward)
	secured.Delete("/user/rewards", collectionService.ClearRewards)

	secured.Get("/user/collection/export", collectionService.ExportCollection)
	secured.Post("/user/collection/import", collectionService.ImportCollection)
	secured.Post("/user/collection/backup", collectionService.BackupCollection)

	secured.Get("/user/profile", collectionService.GetProfile)
	secured.Patch("/user/profile", collectionService.UpdateProfile)
	secured.Put("/user/preferences", collectionService.UpdatePreferences)
}
