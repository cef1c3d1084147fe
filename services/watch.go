package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"reward-collect-system/models"
	"reward-collect-system/storage"
)

// stallCutoff is the wall-clock gap beyond which an update accrues nothing:
// the tab was backgrounded or the update loop stalled.
const stallCutoff = 15 * time.Second

// WatchService tracks genuine watch time per video, distinguishing wall-clock
// time from time the video was actually advancing. Accrual is the minimum of
// video delta and wall delta, which defeats both forward scrubbing and
// playback-rate tricks; any backward seek resets the session's accumulated
// time to zero.
type WatchService struct {
	Store storage.Store

	mu       sync.Mutex
	sessions map[string]*watchSession

	// writes that failed, keyed by storage key, retried by the flush worker
	pendingWrites  map[string][]byte
	pendingRemoves map[string]bool
}

type watchSession struct {
	UserID    string
	VideoID   string
	Duration  float64
	Threshold float64

	Accumulated  float64
	LastPosition float64
	LastUpdate   time.Time
	StartedAt    time.Time

	// completedAtStart snapshots the durable completed flag when the session
	// began. Update latches the durable flag the moment the threshold is
	// crossed, so eligibility compares against this snapshot instead —
	// otherwise the crossing update would disqualify its own session.
	completedAtStart bool
	claimed          bool
}

func NewWatchService(store storage.Store) *WatchService {
	return &WatchService{
		Store:          store,
		sessions:       make(map[string]*watchSession),
		pendingWrites:  make(map[string][]byte),
		pendingRemoves: make(map[string]bool),
	}
}

func progressKey(userID, videoID string) string {
	return "video:" + userID + ":" + videoID
}

func markerKey(userID, videoID string) string {
	return "session:" + userID + ":" + videoID
}

func sessionKey(userID, videoID string) string {
	return userID + "|" + videoID
}

// loadProgress reads durable progress, returning a zeroed record when absent
func (s *WatchService) loadProgress(userID, videoID string) *models.VideoProgress {
	progress := &models.VideoProgress{VideoID: videoID}
	raw, err := s.Store.Get(progressKey(userID, videoID))
	if err != nil {
		log.Printf("[WATCH] progress load failed for %s/%s: %v", userID, videoID, err)
		return progress
	}
	if raw == nil {
		return progress
	}
	if err := json.Unmarshal(raw, progress); err != nil {
		log.Printf("[WATCH] corrupt progress for %s/%s: %v", userID, videoID, err)
		return &models.VideoProgress{VideoID: videoID}
	}
	return progress
}

// write persists a JSON document, queueing a retry on failure
func (s *WatchService) write(key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("[WATCH] marshal failed for %s: %v", key, err)
		return
	}
	if err := s.Store.Set(key, raw); err != nil {
		s.pendingWrites[key] = raw
		log.Printf("[WATCH] persist failed for %s (will retry): %v", key, err)
		return
	}
	delete(s.pendingWrites, key)
}

// remove deletes a persisted key, queueing a retry on failure
func (s *WatchService) remove(key string) {
	delete(s.pendingWrites, key)
	if err := s.Store.Remove(key); err != nil {
		s.pendingRemoves[key] = true
		log.Printf("[WATCH] remove failed for %s (will retry): %v", key, err)
		return
	}
	delete(s.pendingRemoves, key)
}

// SessionInfo is the caller-facing snapshot of a running session
type SessionInfo struct {
	VideoID     string  `json:"video_id"`
	Accumulated float64 `json:"accumulated"`
	Threshold   float64 `json:"threshold"`
	Duration    float64 `json:"duration"`
	Resumed     bool    `json:"resumed"`
	Completed   bool    `json:"completed"`
}

// StartSession begins (or resumes) tracking a video. An in-flight session
// marker written within the last hour is resumed; a staler one is discarded
// and the session picks up from the durable watch-time total instead.
func (s *WatchService) StartSession(userID, videoID string, duration, threshold float64) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	progress := s.loadProgress(userID, videoID)

	session := &watchSession{
		UserID:           userID,
		VideoID:          videoID,
		Duration:         duration,
		Threshold:        threshold,
		Accumulated:      progress.WatchTime,
		LastPosition:     0,
		LastUpdate:       now,
		StartedAt:        now,
		completedAtStart: progress.Completed,
	}

	resumed := false
	if raw, err := s.Store.Get(markerKey(userID, videoID)); err == nil && raw != nil {
		var marker models.SessionMarker
		if err := json.Unmarshal(raw, &marker); err == nil {
			if marker.Fresh(now) {
				session.Accumulated = marker.Accumulated
				session.LastPosition = marker.Position
				resumed = true
			} else {
				s.remove(markerKey(userID, videoID))
			}
		}
	}

	s.sessions[sessionKey(userID, videoID)] = session
	s.writeMarker(session, now)

	return SessionInfo{
		VideoID:     videoID,
		Accumulated: session.Accumulated,
		Threshold:   threshold,
		Duration:    duration,
		Resumed:     resumed,
		Completed:   progress.Completed,
	}
}

func (s *WatchService) writeMarker(session *watchSession, now time.Time) {
	s.write(markerKey(session.UserID, session.VideoID), models.SessionMarker{
		VideoID:     session.VideoID,
		Accumulated: session.Accumulated,
		Position:    session.LastPosition,
		UpdatedAt:   now,
	})
}

func (s *WatchService) flushProgress(session *watchSession, now time.Time) {
	completed := session.completedAtStart || session.claimed || session.Accumulated >= session.Threshold
	s.write(progressKey(session.UserID, session.VideoID), models.VideoProgress{
		VideoID:       session.VideoID,
		WatchTime:     session.Accumulated,
		Duration:      session.Duration,
		Completed:     completed,
		LastWatchedAt: models.NewTaggedDate(now),
	})
}

// WatchUpdate is the result of ingesting one player time-update
type WatchUpdate struct {
	Accumulated float64 `json:"accumulated"`
	Threshold   float64 `json:"threshold"`
	Eligible    bool    `json:"eligible"`
	SeekReset   bool    `json:"seek_reset"`
}

// UpdateWatchTime ingests one time-update from the player. position is the
// player-reported playback position in seconds.
func (s *WatchService) UpdateWatchTime(userID, videoID string, position float64, isPlaying bool) (WatchUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey(userID, videoID)]
	if !ok {
		return WatchUpdate{}, fmt.Errorf("no active session for video %s", videoID)
	}

	now := time.Now()
	wallDelta := now.Sub(session.LastUpdate)
	seekReset := false

	if position < session.LastPosition {
		// Backward seek: the one anti-cheat rule. Any rewind restarts the
		// session's accumulated time.
		session.Accumulated = 0
		seekReset = true
	} else if isPlaying && wallDelta > 0 && wallDelta < stallCutoff {
		videoDelta := position - session.LastPosition
		if videoDelta < 0 {
			videoDelta = 0
		}
		accrual := videoDelta
		if wall := wallDelta.Seconds(); wall < accrual {
			accrual = wall
		}
		session.Accumulated += accrual
	}

	// Position advances regardless of accrual so a later rewind is detected
	session.LastPosition = position
	session.LastUpdate = now

	s.flushProgress(session, now)
	s.writeMarker(session, now)

	return WatchUpdate{
		Accumulated: session.Accumulated,
		Threshold:   session.Threshold,
		Eligible:    s.eligible(session),
		SeekReset:   seekReset,
	}, nil
}

func (s *WatchService) eligible(session *watchSession) bool {
	return session.Accumulated >= session.Threshold &&
		!session.completedAtStart &&
		!session.claimed
}

// IsEligibleForReward reports whether the caller may mint a reward for this
// video: threshold reached and not already completed. Minting stays with the
// caller; this is only the query it polls.
func (s *WatchService) IsEligibleForReward(userID, videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey(userID, videoID)]
	if !ok {
		return false
	}
	return s.eligible(session)
}

// MarkClaimed records that the video's reward was minted, latching the
// durable completed flag so the video cannot be claimed again.
func (s *WatchService) MarkClaimed(userID, videoID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionKey(userID, videoID)]
	if !ok {
		return 0, fmt.Errorf("no active session for video %s", videoID)
	}
	session.claimed = true
	s.flushProgress(session, time.Now())
	return session.Accumulated, nil
}

// EndSession flushes final numbers to durable progress and clears the
// in-flight marker. Ending an unknown session is a no-op.
func (s *WatchService) EndSession(userID, videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(userID, videoID)
	session, ok := s.sessions[key]
	if !ok {
		return
	}
	s.flushProgress(session, time.Now())
	s.remove(markerKey(userID, videoID))
	delete(s.sessions, key)
}

// ResetProgress wipes durable progress including the completed flag. This is
// the only way completion ever clears.
func (s *WatchService) ResetProgress(userID, videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionKey(userID, videoID))
	s.remove(markerKey(userID, videoID))
	s.write(progressKey(userID, videoID), models.VideoProgress{VideoID: videoID})
}

// Progress returns the durable watch state for a video
func (s *WatchService) Progress(userID, videoID string) models.VideoProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A live session is fresher than the last durable write
	if session, ok := s.sessions[sessionKey(userID, videoID)]; ok {
		return models.VideoProgress{
			VideoID:       videoID,
			WatchTime:     session.Accumulated,
			Duration:      session.Duration,
			Completed:     session.completedAtStart || session.claimed || session.Accumulated >= session.Threshold,
			LastWatchedAt: models.NewTaggedDate(session.LastUpdate),
		}
	}
	return *s.loadProgress(userID, videoID)
}

// SweepStaleSessions ends sessions idle past the recovery window. Their
// durable progress is already flushed on every accrual, so only the marker
// and the in-memory entry are dropped.
func (s *WatchService) SweepStaleSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	swept := 0
	for key, session := range s.sessions {
		if now.Sub(session.LastUpdate) <= models.SessionRecoveryWindow {
			continue
		}
		s.flushProgress(session, now)
		s.remove(markerKey(session.UserID, session.VideoID))
		delete(s.sessions, key)
		swept++
	}
	return swept
}

// FlushDirty retries writes and removals that previously failed
func (s *WatchService) FlushDirty() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	flushed := 0
	for key, raw := range s.pendingWrites {
		if err := s.Store.Set(key, raw); err != nil {
			continue
		}
		delete(s.pendingWrites, key)
		flushed++
	}
	for key := range s.pendingRemoves {
		if err := s.Store.Remove(key); err != nil {
			continue
		}
		delete(s.pendingRemoves, key)
		flushed++
	}
	return flushed
}
