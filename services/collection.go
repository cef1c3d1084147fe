// services/collection.go
package services

import (
	"fmt"
	"time"

	"reward-collect-system/models"
	"reward-collect-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CollectionService exposes the ledger over HTTP: listing, deletion,
// export/import and the profile surface.
type CollectionService struct {
	Ledger *LedgerService
}

func NewCollectionService(ledger *LedgerService) *CollectionService {
	return &CollectionService{Ledger: ledger}
}

// GetRewards fetches the authenticated user's rewards with optional filters
func (s *CollectionService) GetRewards(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	filter := RewardFilter{}
	if rarity := c.Query("rarity"); rarity != "" {
		r := models.Rarity(rarity)
		if !r.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown rarity"})
		}
		filter.Rarity = r
	}
	if action := c.Query("action"); action != "" {
		a := models.ActionType(action)
		if !a.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown action type"})
		}
		filter.ActionType = a
	}
	filter.TodayOnly = c.QueryBool("today", false)

	rewards := s.Ledger.Rewards(userID, filter)
	return c.JSON(fiber.Map{
		"rewards": rewards,
		"count":   len(rewards),
	})
}

// GetCounts returns the aggregate counters the header widget polls
func (s *CollectionService) GetCounts(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	profile := s.Ledger.Profile(userID)
	today := s.Ledger.Rewards(userID, RewardFilter{TodayOnly: true})
	return c.JSON(fiber.Map{
		"total_count":       profile.TotalRewards,
		"today_count":       len(today),
		"rewards_by_rarity": profile.RewardsByRarity,
	})
}

// DeleteReward removes one reward from the ledger
func (s *CollectionService) DeleteReward(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	rewardID := c.Params("id")

	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	if !s.Ledger.Remove(userID, rewardID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found"})
	}
	return c.JSON(fiber.Map{"message": "Reward deleted successfully"})
}

// ClearRewards empties the ledger and zeroes every counter
func (s *CollectionService) ClearRewards(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	s.Ledger.ClearAll(userID)
	return c.JSON(fiber.Map{"message": "Collection cleared"})
}

// ExportCollection streams the interchange document as a download
func (s *CollectionService) ExportCollection(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	payload, err := s.Ledger.Export(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export collection"})
	}

	c.Set("Content-Type", "application/json")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="rewards-%s.json"`, time.Now().Format("2006-01-02")))
	return c.Send(payload)
}

// ImportCollection replaces the ledger wholesale from an uploaded document
func (s *CollectionService) ImportCollection(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := s.Ledger.Import(userID, c.Body()); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	profile := s.Ledger.Profile(userID)
	return c.JSON(fiber.Map{
		"message":       "Collection imported",
		"total_rewards": profile.TotalRewards,
	})
}

// GetProfile returns the user's profile and a storage-health flag
func (s *CollectionService) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	resp := fiber.Map{"profile": s.Ledger.Profile(userID)}
	if s.Ledger.PersistError(userID) != nil {
		resp["storage_degraded"] = true
	}
	return c.JSON(resp)
}

// UpdateProfile updates display name and avatar
func (s *CollectionService) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		DisplayName string `json:"display_name"`
		Avatar      string `json:"avatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile := s.Ledger.UpdateIdentity(userID, req.DisplayName, req.Avatar)
	return c.JSON(fiber.Map{"profile": profile})
}

// UpdatePreferences replaces the preference flags
func (s *CollectionService) UpdatePreferences(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req models.Preferences
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile := s.Ledger.UpdatePreferences(userID, req)
	return c.JSON(fiber.Map{"profile": profile})
}

// BackupCollection pushes the export document to R2 on demand
func (s *CollectionService) BackupCollection(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if !utils.R2Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "backups not configured"})
	}

	payload, err := s.Ledger.Export(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export collection"})
	}

	key := fmt.Sprintf("backups/%s/%s.json", userID, time.Now().Format("2006-01-02T15-04-05"))
	url, err := utils.UploadBackupToR2(payload, key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload backup"})
	}
	return c.JSON(fiber.Map{"message": "Backup uploaded", "url": url})
}
