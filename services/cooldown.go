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

// CooldownService enforces a minimum interval between successive actions of
// the same type, independent per action type. An entry past its expiry is
// treated exactly like a missing one; expiry is detected lazily on Check,
// nothing is ever actively cleared.
type CooldownService struct {
	Store storage.Store

	mu     sync.Mutex
	states map[string]*cooldownState
}

type cooldownState struct {
	Cooldowns  *models.CooldownState
	persistErr error
}

func NewCooldownService(store storage.Store) *CooldownService {
	return &CooldownService{
		Store:  store,
		states: make(map[string]*cooldownState),
	}
}

func cooldownKey(userID string) string {
	return "cooldowns:" + userID
}

// state loads (or lazily creates) a user's cooldowns. Callers hold s.mu.
func (s *CooldownService) state(userID string) *cooldownState {
	if st, ok := s.states[userID]; ok {
		return st
	}

	st := &cooldownState{Cooldowns: models.NewCooldownState()}
	raw, err := s.Store.Get(cooldownKey(userID))
	if err != nil {
		log.Printf("[COOLDOWN] load failed for %s, starting empty: %v", userID, err)
	} else if raw != nil {
		var loaded models.CooldownState
		if err := json.Unmarshal(raw, &loaded); err != nil {
			log.Printf("[COOLDOWN] corrupt state for %s, starting empty: %v", userID, err)
		} else if loaded.ExpiresAt != nil {
			st.Cooldowns = &loaded
		}
	}
	s.states[userID] = st
	return st
}

func (s *CooldownService) persist(userID string, st *cooldownState) {
	raw, err := json.Marshal(st.Cooldowns)
	if err != nil {
		st.persistErr = err
		return
	}
	if err := s.Store.Set(cooldownKey(userID), raw); err != nil {
		st.persistErr = err
		log.Printf("[COOLDOWN] persist failed for %s (will retry): %v", userID, err)
		return
	}
	st.persistErr = nil
}

// SetCooldown starts the fixed-duration cooldown for the action type. Called
// only as the side effect of a successful action.
func (s *CooldownService) SetCooldown(userID string, action models.ActionType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	st.Cooldowns.ExpiresAt[action] = time.Now().Add(models.CooldownDuration(action))
	s.persist(userID, st)
}

// Check reports whether the action is currently cooling, how long remains and
// a message suitable for direct display. Pure read, no mutation.
func (s *CooldownService) Check(userID string, action models.ActionType) models.CooldownStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	expiry, ok := st.Cooldowns.ExpiresAt[action]
	if !ok {
		return models.CooldownStatus{Active: false, Message: "ready"}
	}

	now := time.Now()

	// Daily login gates by local calendar day: active for the rest of the
	// day the cooldown was set, regardless of the rolling 24h expiry.
	if action == models.ActionDailyLogin {
		setAt := expiry.Add(-models.CooldownDailyLogin)
		if sameCalendarDay(setAt, now) {
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
			return models.CooldownStatus{
				Active:      true,
				RemainingMS: midnight.Sub(now).Milliseconds(),
				Message:     "daily bonus already collected today, come back tomorrow",
			}
		}
		return models.CooldownStatus{Active: false, Message: "ready"}
	}

	if !expiry.After(now) {
		return models.CooldownStatus{Active: false, Message: "ready"}
	}

	remaining := expiry.Sub(now)
	return models.CooldownStatus{
		Active:      true,
		RemainingMS: remaining.Milliseconds(),
		Message:     fmt.Sprintf("too soon, try again in %ds", int(remaining.Seconds())+1),
	}
}

func sameCalendarDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// FlushDirty retries persistence for users whose last write failed
func (s *CooldownService) FlushDirty() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	flushed := 0
	for userID, st := range s.states {
		if st.persistErr == nil {
			continue
		}
		s.persist(userID, st)
		if st.persistErr == nil {
			flushed++
		}
	}
	return flushed
}
