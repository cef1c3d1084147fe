package models

import "time"

// VideoProgress is the durable per-video watch state. WatchTime is seconds of
// genuine playback, not wall-clock time. Completed is monotonic: once set it
// survives session resets and only ResetProgress clears it.
type VideoProgress struct {
	VideoID       string     `json:"video_id"`
	WatchTime     float64    `json:"watch_time"`
	Duration      float64    `json:"duration"`
	Completed     bool       `json:"completed"`
	LastWatchedAt TaggedDate `json:"last_watched_at"`
}

// SessionRecoveryWindow bounds how old an interrupted session marker may be
// and still be resumed after a reload. Older markers are discarded.
const SessionRecoveryWindow = 1 * time.Hour

// SessionMarker is the short-lived record of an in-flight watch session,
// persisted so a page reload mid-session can pick up where it left off.
type SessionMarker struct {
	VideoID     string    `json:"video_id"`
	Accumulated float64   `json:"accumulated"`
	Position    float64   `json:"position"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fresh reports whether the marker is still within the recovery window.
func (m *SessionMarker) Fresh(now time.Time) bool {
	age := now.Sub(m.UpdatedAt)
	return age >= 0 && age <= SessionRecoveryWindow
}
