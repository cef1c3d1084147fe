package models

import "time"

// Preferences are the user's client-facing toggles, stored with the profile
type Preferences struct {
	SoundEnabled         bool   `json:"sound_enabled"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	Theme                string `json:"theme"`
}

// UserProfile aggregates the collector's state. Invariant maintained by the
// ledger: TotalRewards == sum(RewardsByRarity) == number of live rewards.
type UserProfile struct {
	ID              string         `json:"id"`
	DisplayName     string         `json:"display_name"`
	Avatar          string         `json:"avatar"`
	CreatedAt       TaggedDate     `json:"created_at"`
	TotalRewards    int            `json:"total_rewards"`
	RewardsByRarity map[Rarity]int `json:"rewards_by_rarity"`
	Preferences     Preferences    `json:"preferences"`
}

// NewUserProfile returns first-run defaults. Every rarity counter is present
// from the start so JSON consumers never see a missing tier.
func NewUserProfile(id string) *UserProfile {
	byRarity := make(map[Rarity]int, len(AllRarities))
	for _, r := range AllRarities {
		byRarity[r] = 0
	}
	return &UserProfile{
		ID:              id,
		DisplayName:     "Collector",
		Avatar:          "🧭",
		CreatedAt:       NewTaggedDate(time.Now()),
		TotalRewards:    0,
		RewardsByRarity: byRarity,
		Preferences: Preferences{
			SoundEnabled:         true,
			NotificationsEnabled: true,
			Theme:                "light",
		},
	}
}

// EnsureCounters backfills missing rarity keys (e.g. after importing an old
// document) and floors negatives at zero.
func (p *UserProfile) EnsureCounters() {
	if p.RewardsByRarity == nil {
		p.RewardsByRarity = make(map[Rarity]int, len(AllRarities))
	}
	for _, r := range AllRarities {
		if p.RewardsByRarity[r] <= 0 {
			p.RewardsByRarity[r] = 0
		}
	}
	if p.TotalRewards < 0 {
		p.TotalRewards = 0
	}
}

// RecountFrom rebuilds the aggregate counters from an authoritative reward
// list, used after imports so the counter invariant always holds.
func (p *UserProfile) RecountFrom(rewards []Reward) {
	byRarity := make(map[Rarity]int, len(AllRarities))
	for _, r := range AllRarities {
		byRarity[r] = 0
	}
	for i := range rewards {
		byRarity[rewards[i].Rarity]++
	}
	p.RewardsByRarity = byRarity
	p.TotalRewards = len(rewards)
}
