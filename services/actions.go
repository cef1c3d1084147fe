// services/actions.go
package services

import (
	"log"
	"math/rand"
	"strings"

	"reward-collect-system/models"
	"reward-collect-system/utils"

	"github.com/gofiber/fiber/v2"
)

// ActionService orchestrates the earn flows: cooldown check → eligibility →
// mint → cooldown set. Every rejection carries a message the UI can show
// verbatim; silent failure is not acceptable.
type ActionService struct {
	Ledger    *LedgerService
	Cooldowns *CooldownService
	Watch     *WatchService
	Catalog   *CatalogService
}

func NewActionService(ledger *LedgerService, cooldowns *CooldownService, watch *WatchService, catalog *CatalogService) *ActionService {
	return &ActionService{Ledger: ledger, Cooldowns: cooldowns, Watch: watch, Catalog: catalog}
}

// rollRarity resolves a catalog rarity field, rolling the weighted table for
// entries marked "random".
func rollRarity(raw string) models.Rarity {
	if raw != models.RandomRarity {
		r := models.Rarity(raw)
		if r.Valid() {
			return r
		}
		return models.RarityCommon
	}

	roll := rand.Intn(100)
	for _, rarity := range models.AllRarities {
		roll -= models.RarityWeights[rarity]
		if roll < 0 {
			return rarity
		}
	}
	return models.RarityCommon
}

func mintResponse(c *fiber.Ctx, reward *models.Reward, persistErr error, extra fiber.Map) error {
	resp := fiber.Map{
		"success": true,
		"reward":  reward,
	}
	if persistErr != nil {
		// Non-fatal: memory is authoritative until the flush worker catches up
		resp["storage_degraded"] = true
	}
	for k, v := range extra {
		resp[k] = v
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ScanCode handles POST /s/actions/scan
func (s *ActionService) ScanCode(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid code"})
	}

	if status := s.Cooldowns.Check(userID, models.ActionCodeScan); status.Active {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":        status.Message,
			"remaining_ms": status.RemainingMS,
		})
	}

	entry, err := s.Catalog.FindCode(code)
	if err != nil {
		log.Printf("DB Error looking up code: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up code"})
	}
	if entry == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invalid code"})
	}

	reward, err := s.Ledger.Mint(userID, MintInput{
		Name:        entry.RewardName,
		Rarity:      rollRarity(entry.Rarity),
		Icon:        entry.Icon,
		Description: entry.Description,
		ActionType:  models.ActionCodeScan,
		Metadata:    &models.RewardMetadata{Scan: &models.ScanMetadata{Code: code}},
	})
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	s.Cooldowns.SetCooldown(userID, models.ActionCodeScan)
	return mintResponse(c, reward, s.Ledger.PersistError(userID), nil)
}

// CheckIn handles POST /s/actions/checkin
func (s *ActionService) CheckIn(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		LocationID string  `json:"location_id"`
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !utils.ValidCoordinates(req.Latitude, req.Longitude) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coordinates"})
	}

	if status := s.Cooldowns.Check(userID, models.ActionLocationCheckin); status.Active {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":        status.Message,
			"remaining_ms": status.RemainingMS,
		})
	}

	location, err := s.Catalog.FindLocation(req.LocationID)
	if err != nil {
		log.Printf("DB Error looking up location: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up location"})
	}
	if location == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown location"})
	}

	if s.Ledger.HasCheckin(userID, location.LocationID) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already checked in here"})
	}

	distance := utils.HaversineDistance(req.Latitude, req.Longitude, location.Latitude, location.Longitude)
	if !utils.WithinRadius(req.Latitude, req.Longitude, location.Latitude, location.Longitude, location.RadiusM) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":             "not close enough to check in",
			"distance_m":        distance,
			"radius_m":          location.RadiusM,
			"proximity_percent": utils.ProximityPercent(distance, location.RadiusM),
		})
	}

	reward, err := s.Ledger.Mint(userID, MintInput{
		Name:        location.RewardName,
		Rarity:      rollRarity(location.Rarity),
		Icon:        location.Icon,
		Description: location.Description,
		ActionType:  models.ActionLocationCheckin,
		Metadata: &models.RewardMetadata{Checkin: &models.CheckinMetadata{
			LocationID: location.LocationID,
			Distance:   distance,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
		}},
	})
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	s.Cooldowns.SetCooldown(userID, models.ActionLocationCheckin)
	return mintResponse(c, reward, s.Ledger.PersistError(userID), fiber.Map{"distance_m": distance})
}

// DailyLogin handles POST /s/actions/daily-login
func (s *ActionService) DailyLogin(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if status := s.Cooldowns.Check(userID, models.ActionDailyLogin); status.Active {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":        status.Message,
			"remaining_ms": status.RemainingMS,
		})
	}

	reward, err := s.Ledger.Mint(userID, MintInput{
		Name:        "Daily Streak Token",
		Rarity:      models.RarityCommon,
		Icon:        "🌅",
		Description: "Showed up today",
		ActionType:  models.ActionDailyLogin,
	})
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	s.Cooldowns.SetCooldown(userID, models.ActionDailyLogin)
	return mintResponse(c, reward, s.Ledger.PersistError(userID), nil)
}

// CooldownStatus handles GET /s/actions/cooldown/:action — the UI countdown
// re-checks this every second.
func (s *ActionService) CooldownStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	action := models.ActionType(c.Params("action"))
	if !action.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown action type"})
	}
	return c.JSON(s.Cooldowns.Check(userID, action))
}

// Locations handles GET /s/locations, optionally annotating proximity when
// the client supplies its position.
func (s *ActionService) Locations(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	locations, err := s.Catalog.ListLocations()
	if err != nil {
		log.Printf("DB Error listing locations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list locations"})
	}

	lat := c.QueryFloat("latitude", 0)
	lon := c.QueryFloat("longitude", 0)
	hasPosition := c.Query("latitude") != "" && c.Query("longitude") != "" && utils.ValidCoordinates(lat, lon)

	out := make([]fiber.Map, 0, len(locations))
	for _, loc := range locations {
		item := fiber.Map{
			"location_id": loc.LocationID,
			"name":        loc.Name,
			"latitude":    loc.Latitude,
			"longitude":   loc.Longitude,
			"radius_m":    loc.RadiusM,
			"reward_name": loc.RewardName,
			"rarity":      loc.Rarity,
			"icon":        loc.Icon,
			"checked_in":  s.Ledger.HasCheckin(userID, loc.LocationID),
		}
		if hasPosition {
			distance := utils.HaversineDistance(lat, lon, loc.Latitude, loc.Longitude)
			item["distance_m"] = distance
			item["within_radius"] = utils.WithinRadius(lat, lon, loc.Latitude, loc.Longitude, loc.RadiusM)
			item["proximity_percent"] = utils.ProximityPercent(distance, loc.RadiusM)
		}
		out = append(out, item)
	}
	return c.JSON(out)
}

// --- Video watch flow ---

// StartVideoSession handles POST /s/videos/:id/session
func (s *ActionService) StartVideoSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	videoID := c.Params("id")

	video, err := s.Catalog.FindVideo(videoID)
	if err != nil {
		log.Printf("DB Error looking up video: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up video"})
	}
	if video == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown video"})
	}

	info := s.Watch.StartSession(userID, videoID, video.DurationSeconds, video.MinWatchSeconds)
	return c.JSON(info)
}

// UpdateVideoWatch handles PATCH /s/videos/:id/watch — the bridge from the
// player's time-update events.
func (s *ActionService) UpdateVideoWatch(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	videoID := c.Params("id")

	var req struct {
		Position  float64 `json:"position"`
		IsPlaying bool    `json:"is_playing"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	update, err := s.Watch.UpdateWatchTime(userID, videoID, req.Position, req.IsPlaying)
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(update)
}

// EndVideoSession handles DELETE /s/videos/:id/session
func (s *ActionService) EndVideoSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	s.Watch.EndSession(userID, c.Params("id"))
	return c.JSON(fiber.Map{"message": "session ended"})
}

// VideoProgress handles GET /s/videos/:id/progress
func (s *ActionService) VideoProgress(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	return c.JSON(s.Watch.Progress(userID, c.Params("id")))
}

// ResetVideoProgress handles DELETE /s/videos/:id/progress
func (s *ActionService) ResetVideoProgress(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	s.Watch.ResetProgress(userID, c.Params("id"))
	return c.JSON(fiber.Map{"message": "progress reset"})
}

// ClaimVideoReward handles POST /s/videos/:id/claim
func (s *ActionService) ClaimVideoReward(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	videoID := c.Params("id")

	if status := s.Cooldowns.Check(userID, models.ActionVideoWatch); status.Active {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":        status.Message,
			"remaining_ms": status.RemainingMS,
		})
	}

	if !s.Watch.IsEligibleForReward(userID, videoID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "watch threshold not reached or reward already collected"})
	}

	video, err := s.Catalog.FindVideo(videoID)
	if err != nil {
		log.Printf("DB Error looking up video: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up video"})
	}
	if video == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown video"})
	}

	watchTime, err := s.Watch.MarkClaimed(userID, videoID)
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	reward, err := s.Ledger.Mint(userID, MintInput{
		Name:        video.RewardName,
		Rarity:      rollRarity(video.Rarity),
		Icon:        video.Icon,
		Description: video.Description,
		ActionType:  models.ActionVideoWatch,
		Metadata: &models.RewardMetadata{Video: &models.VideoMetadata{
			VideoID:   videoID,
			WatchTime: watchTime,
		}},
	})
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	s.Cooldowns.SetCooldown(userID, models.ActionVideoWatch)
	return mintResponse(c, reward, s.Ledger.PersistError(userID), nil)
}

// Videos handles GET /s/videos
func (s *ActionService) Videos(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	videos, err := s.Catalog.ListVideos()
	if err != nil {
		log.Printf("DB Error listing videos: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list videos"})
	}

	out := make([]fiber.Map, 0, len(videos))
	for _, v := range videos {
		progress := s.Watch.Progress(userID, v.VideoID)
		out = append(out, fiber.Map{
			"video_id":          v.VideoID,
			"title":             v.Title,
			"duration_seconds":  v.DurationSeconds,
			"min_watch_seconds": v.MinWatchSeconds,
			"reward_name":       v.RewardName,
			"rarity":            v.Rarity,
			"icon":              v.Icon,
			"watch_time":        progress.WatchTime,
			"completed":         progress.Completed,
		})
	}
	return c.JSON(out)
}
