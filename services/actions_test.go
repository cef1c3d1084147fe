package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reward-collect-system/models"
	"reward-collect-system/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actionFixture struct {
	app    *fiber.App
	ledger *LedgerService
	watch  *WatchService
}

func newActionFixture(t *testing.T) *actionFixture {
	t.Helper()

	store := storage.NewMemoryStore()
	ledger := NewLedgerService(store)
	cooldowns := NewCooldownService(store)
	watch := NewWatchService(store)
	catalog := newTestCatalog(t)
	actions := NewActionService(ledger, cooldowns, watch, catalog)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-User-ID"))
		return c.Next()
	})
	app.Post("/s/actions/scan", actions.ScanCode)
	app.Post("/s/actions/checkin", actions.CheckIn)
	app.Post("/s/actions/daily-login", actions.DailyLogin)
	app.Get("/s/actions/cooldown/:action", actions.CooldownStatus)
	app.Get("/s/locations", actions.Locations)
	app.Post("/s/videos/:id/session", actions.StartVideoSession)
	app.Patch("/s/videos/:id/watch", actions.UpdateVideoWatch)
	app.Post("/s/videos/:id/claim", actions.ClaimVideoReward)

	return &actionFixture{app: app, ledger: ledger, watch: watch}
}

func (f *actionFixture) request(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-ID", "u1")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func TestScanFlow(t *testing.T) {
	f := newActionFixture(t)

	resp, body := f.request(t, "POST", "/s/actions/scan", fiber.Map{"code": "welcome2024"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	reward := body["reward"].(map[string]interface{})
	assert.Equal(t, "Coffee Bean", reward["name"])
	assert.Equal(t, "common", reward["rarity"])
	assert.Equal(t, 1, f.ledger.Count("u1"))

	// Immediately again: blocked by the scan cooldown with remaining time
	resp, body = f.request(t, "POST", "/s/actions/scan", fiber.Map{"code": "GOLDEN-TICKET"})
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
	assert.Greater(t, body["remaining_ms"].(float64), 0.0)
	assert.Equal(t, 1, f.ledger.Count("u1"))
}

func TestScanUnknownCode(t *testing.T) {
	f := newActionFixture(t)

	resp, body := f.request(t, "POST", "/s/actions/scan", fiber.Map{"code": "BOGUS"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "invalid code", body["error"])

	resp, _ = f.request(t, "POST", "/s/actions/scan", fiber.Map{"code": "  "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCheckInFlow(t *testing.T) {
	f := newActionFixture(t)

	// Standing at the flagship
	resp, body := f.request(t, "POST", "/s/actions/checkin", fiber.Map{
		"location_id": "times-square-flagship",
		"latitude":    40.7589,
		"longitude":   -73.9851,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	reward := body["reward"].(map[string]interface{})
	meta := reward["metadata"].(map[string]interface{})["checkin"].(map[string]interface{})
	assert.Equal(t, "times-square-flagship", meta["location_id"])

	// Another attempt inside the cooldown window is rejected up front
	resp, body = f.request(t, "POST", "/s/actions/checkin", fiber.Map{
		"location_id": "harbor-pop-up",
		"latitude":    40.7033,
		"longitude":   -74.0170,
	})
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestCheckInDuplicateLocation(t *testing.T) {
	f := newActionFixture(t)

	// A prior check-in reward is the sole record of having been here
	_, err := f.ledger.Mint("u1", MintInput{
		Name:       "City Explorer Pin",
		Rarity:     models.RarityRare,
		ActionType: models.ActionLocationCheckin,
		Metadata:   &models.RewardMetadata{Checkin: &models.CheckinMetadata{LocationID: "times-square-flagship"}},
	})
	require.NoError(t, err)

	resp, body := f.request(t, "POST", "/s/actions/checkin", fiber.Map{
		"location_id": "times-square-flagship",
		"latitude":    40.7589,
		"longitude":   -73.9851,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already checked in here", body["error"])
	assert.Equal(t, 1, f.ledger.Count("u1"))
}

func TestCheckInTooFar(t *testing.T) {
	f := newActionFixture(t)

	// ~1.5km south of the flagship
	resp, body := f.request(t, "POST", "/s/actions/checkin", fiber.Map{
		"location_id": "times-square-flagship",
		"latitude":    40.7450,
		"longitude":   -73.9851,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "not close enough to check in", body["error"])
	assert.Greater(t, body["distance_m"].(float64), 50.0)
	assert.Equal(t, 0.0, body["proximity_percent"].(float64))
	assert.Equal(t, 0, f.ledger.Count("u1"))
}

func TestCheckInInvalidCoordinates(t *testing.T) {
	f := newActionFixture(t)

	resp, body := f.request(t, "POST", "/s/actions/checkin", fiber.Map{
		"location_id": "times-square-flagship",
		"latitude":    120.0,
		"longitude":   -73.9851,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid coordinates", body["error"])
}

func TestDailyLoginOncePerDay(t *testing.T) {
	f := newActionFixture(t)

	resp, _ := f.request(t, "POST", "/s/actions/daily-login", nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := f.request(t, "POST", "/s/actions/daily-login", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body["error"], "tomorrow")
	assert.Equal(t, 1, f.ledger.Count("u1"))
}

func TestCooldownStatusEndpoint(t *testing.T) {
	f := newActionFixture(t)

	resp, body := f.request(t, "GET", "/s/actions/cooldown/code_scan", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["active"])

	resp, _ = f.request(t, "GET", "/s/actions/cooldown/teleport", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLocationsWithProximity(t *testing.T) {
	f := newActionFixture(t)

	req := httptest.NewRequest("GET", "/s/locations?latitude=40.7589&longitude=-73.9851", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var locations []map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &locations))
	require.Len(t, locations, 2)

	for _, loc := range locations {
		if loc["location_id"] == "times-square-flagship" {
			assert.Equal(t, true, loc["within_radius"])
			assert.Equal(t, 100.0, loc["proximity_percent"])
		} else {
			assert.Equal(t, false, loc["within_radius"])
		}
	}
}

func TestVideoClaimFlow(t *testing.T) {
	f := newActionFixture(t)

	resp, _ := f.request(t, "POST", "/s/videos/brand-story/session", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Claiming before the threshold is rejected
	resp, body := f.request(t, "POST", "/s/videos/brand-story/claim", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	// Simulate 16s of honest playback, then one update through the API
	backdate(f.watch, "u1", "brand-story", 16*time.Second)
	resp, body = f.request(t, "PATCH", "/s/videos/brand-story/watch", fiber.Map{
		"position":   16.0,
		"is_playing": true,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["eligible"])

	resp, body = f.request(t, "POST", "/s/videos/brand-story/claim", nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	reward := body["reward"].(map[string]interface{})
	assert.Equal(t, "Story Seeker Badge", reward["name"])
	meta := reward["metadata"].(map[string]interface{})["video"].(map[string]interface{})
	assert.GreaterOrEqual(t, meta["watch_time"].(float64), 15.0)

	// Second claim is rejected by the cooldown before eligibility is even asked
	resp, _ = f.request(t, "POST", "/s/videos/brand-story/claim", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	// And the session itself is no longer eligible either
	assert.False(t, f.watch.IsEligibleForReward("u1", "brand-story"))
	assert.Equal(t, 1, f.ledger.Count("u1"))
}

func TestVideoSessionUnknownVideo(t *testing.T) {
	f := newActionFixture(t)
	resp, body := f.request(t, "POST", "/s/videos/ghost/session", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "unknown video", body["error"])
}

func TestWatchWithoutSession(t *testing.T) {
	f := newActionFixture(t)
	resp, body := f.request(t, "PATCH", "/s/videos/brand-story/watch", fiber.Map{"position": 5.0, "is_playing": true})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("no active session for video %s", "brand-story"), body["error"])
}
