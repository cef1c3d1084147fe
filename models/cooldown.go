package models

import "time"

// Cooldown durations per action type. Fixed constants, not configurable at
// call time. Daily login is compared by local calendar day rather than a
// rolling 24h timer; the duration below only positions the stored expiry.
const (
	CooldownCodeScan        = 1 * time.Minute
	CooldownVideoWatch      = 1 * time.Minute
	CooldownLocationCheckin = 1 * time.Minute
	CooldownDailyLogin      = 24 * time.Hour
)

// CooldownDuration returns the fixed wait for an action type.
func CooldownDuration(action ActionType) time.Duration {
	switch action {
	case ActionVideoWatch:
		return CooldownVideoWatch
	case ActionLocationCheckin:
		return CooldownLocationCheckin
	case ActionDailyLogin:
		return CooldownDailyLogin
	default:
		return CooldownCodeScan
	}
}

// CooldownState holds one optional expiry per action type. A missing entry or
// a past timestamp both mean "no active cooldown"; entries are never cleared,
// they simply expire.
type CooldownState struct {
	ExpiresAt map[ActionType]time.Time `json:"expires_at"`
}

func NewCooldownState() *CooldownState {
	return &CooldownState{ExpiresAt: make(map[ActionType]time.Time)}
}

// CooldownStatus is the result of a cooldown check
type CooldownStatus struct {
	Active      bool   `json:"active"`
	RemainingMS int64  `json:"remaining_ms"`
	Message     string `json:"message"`
}
