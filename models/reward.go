package models

import (
	"time"
)

// Rarity is the reward quality tier, ordered lowest to highest
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RaritySpecial   Rarity = "special"
)

// AllRarities in ascending order. Counters and weighted rolls iterate this,
// so the order matters.
var AllRarities = []Rarity{
	RarityCommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
	RaritySpecial,
}

func (r Rarity) Valid() bool {
	for _, known := range AllRarities {
		if r == known {
			return true
		}
	}
	return false
}

// RarityWeights drive the roll for catalog entries marked "random" (out of 100).
var RarityWeights = map[Rarity]int{
	RarityCommon:    55,
	RarityRare:      25,
	RarityEpic:      12,
	RarityLegendary: 6,
	RaritySpecial:   2,
}

// ActionType identifies which user action earned a reward
type ActionType string

const (
	ActionCodeScan        ActionType = "code_scan"
	ActionVideoWatch      ActionType = "video_watch"
	ActionLocationCheckin ActionType = "location_checkin"
	ActionDailyLogin      ActionType = "daily_login"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionCodeScan, ActionVideoWatch, ActionLocationCheckin, ActionDailyLogin:
		return true
	}
	return false
}

// ScanMetadata is attached to rewards earned by scanning a code
type ScanMetadata struct {
	Code string `json:"code"`
}

// VideoMetadata is attached to rewards earned by watching a video
type VideoMetadata struct {
	VideoID   string  `json:"video_id"`
	WatchTime float64 `json:"watch_time"` // seconds actually watched at claim time
}

// CheckinMetadata is attached to rewards earned by checking in at a location
type CheckinMetadata struct {
	LocationID string  `json:"location_id"`
	Distance   float64 `json:"distance"` // meters from target at check-in
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// RewardMetadata carries the per-action detail for a reward. At most one of
// the sub-structs is set, matching the reward's ActionType (none for daily login).
type RewardMetadata struct {
	Scan    *ScanMetadata    `json:"scan,omitempty"`
	Video   *VideoMetadata   `json:"video,omitempty"`
	Checkin *CheckinMetadata `json:"checkin,omitempty"`
}

// Reward is one earned collectible. Immutable after mint; the ledger only
// ever appends or deletes whole rewards.
type Reward struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Rarity      Rarity          `json:"rarity"`
	Icon        string          `json:"icon"`
	Description string          `json:"description"`
	ActionType  ActionType      `json:"action_type"`
	EarnedAt    TaggedDate      `json:"earned_at"`
	Metadata    *RewardMetadata `json:"metadata,omitempty"`
}

// EarnedOn reports whether the reward was earned on the given local calendar day.
func (r *Reward) EarnedOn(day time.Time) bool {
	y1, m1, d1 := r.EarnedAt.Time().Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
