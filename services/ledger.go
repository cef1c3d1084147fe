package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"reward-collect-system/models"
	"reward-collect-system/storage"

	"github.com/google/uuid"
)

// LedgerService is the single source of truth for earned rewards and profile
// aggregates. It is the only component allowed to mint or delete rewards.
// State is held in memory per user and write-through persisted on every
// mutation; a failed write flags the user dirty for the flush worker instead
// of rolling back.
type LedgerService struct {
	Store storage.Store

	mu     sync.Mutex
	states map[string]*ledgerState
}

type ledgerState struct {
	Rewards []models.Reward
	Profile *models.UserProfile

	// persistErr holds the last storage failure, cleared on the next
	// successful write. In-memory state stays authoritative meanwhile.
	persistErr error
}

// ledgerDocument is the persisted and exported JSON shape
type ledgerDocument struct {
	Rewards []models.Reward     `json:"rewards"`
	Profile *models.UserProfile `json:"userProfile"`
}

func NewLedgerService(store storage.Store) *LedgerService {
	return &LedgerService{
		Store:  store,
		states: make(map[string]*ledgerState),
	}
}

func ledgerKey(userID string) string {
	return "ledger:" + userID
}

// state loads (or lazily creates) a user's ledger. Callers hold s.mu.
func (s *LedgerService) state(userID string) *ledgerState {
	if st, ok := s.states[userID]; ok {
		return st
	}

	st := &ledgerState{Profile: models.NewUserProfile(userID)}
	raw, err := s.Store.Get(ledgerKey(userID))
	if err != nil {
		log.Printf("[LEDGER] load failed for %s, starting empty: %v", userID, err)
	} else if raw != nil {
		var doc ledgerDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Printf("[LEDGER] corrupt document for %s, starting empty: %v", userID, err)
		} else {
			if doc.Rewards != nil {
				st.Rewards = doc.Rewards
			}
			if doc.Profile != nil {
				st.Profile = doc.Profile
				st.Profile.EnsureCounters()
			}
		}
	}
	s.states[userID] = st
	return st
}

// persist write-through serializes the state. Failures are non-fatal: the
// state keeps serving from memory and the flush worker retries.
func (s *LedgerService) persist(userID string, st *ledgerState) {
	doc := ledgerDocument{Rewards: st.Rewards, Profile: st.Profile}
	raw, err := json.Marshal(doc)
	if err != nil {
		st.persistErr = err
		log.Printf("[LEDGER] marshal failed for %s: %v", userID, err)
		return
	}
	if err := s.Store.Set(ledgerKey(userID), raw); err != nil {
		st.persistErr = err
		log.Printf("[LEDGER] persist failed for %s (will retry): %v", userID, err)
		return
	}
	st.persistErr = nil
}

// MintInput describes the reward candidate supplied by an action handler
type MintInput struct {
	Name        string
	Rarity      models.Rarity
	Icon        string
	Description string
	ActionType  models.ActionType
	Metadata    *models.RewardMetadata
}

// Mint creates a reward with a fresh identifier and timestamp, appends it,
// updates the counters and persists. The only rejection is an identifier
// collision, kept explicit for determinism.
func (s *LedgerService) Mint(userID string, in MintInput) (*models.Reward, error) {
	if !in.Rarity.Valid() {
		return nil, fmt.Errorf("unknown rarity %q", in.Rarity)
	}
	if !in.ActionType.Valid() {
		return nil, fmt.Errorf("unknown action type %q", in.ActionType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	id := uuid.NewString()
	for i := range st.Rewards {
		if st.Rewards[i].ID == id {
			return nil, fmt.Errorf("duplicate reward identifier")
		}
	}

	reward := models.Reward{
		ID:          id,
		Name:        in.Name,
		Rarity:      in.Rarity,
		Icon:        in.Icon,
		Description: in.Description,
		ActionType:  in.ActionType,
		EarnedAt:    models.NewTaggedDate(time.Now()),
		Metadata:    in.Metadata,
	}

	st.Rewards = append(st.Rewards, reward)
	st.Profile.TotalRewards++
	st.Profile.RewardsByRarity[reward.Rarity]++
	s.persist(userID, st)

	return &reward, nil
}

// Remove deletes the reward with the given id if present and decrements the
// counters, floored at zero. Removing an absent id is a no-op.
func (s *LedgerService) Remove(userID, rewardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	for i := range st.Rewards {
		if st.Rewards[i].ID != rewardID {
			continue
		}
		rarity := st.Rewards[i].Rarity
		st.Rewards = append(st.Rewards[:i], st.Rewards[i+1:]...)
		if st.Profile.TotalRewards > 0 {
			st.Profile.TotalRewards--
		}
		if st.Profile.RewardsByRarity[rarity] > 0 {
			st.Profile.RewardsByRarity[rarity]--
		}
		s.persist(userID, st)
		return true
	}
	return false
}

// ClearAll empties the ledger and zeroes every counter
func (s *LedgerService) ClearAll(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	st.Rewards = nil
	st.Profile.RecountFrom(nil)
	s.persist(userID, st)
}

// RewardFilter narrows query results; zero values mean "no filter"
type RewardFilter struct {
	Rarity     models.Rarity
	ActionType models.ActionType
	TodayOnly  bool
}

// Rewards returns a copy of the user's rewards matching the filter,
// newest first. Pure read.
func (s *LedgerService) Rewards(userID string, filter RewardFilter) []models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	now := time.Now()
	out := make([]models.Reward, 0, len(st.Rewards))
	for i := len(st.Rewards) - 1; i >= 0; i-- {
		r := st.Rewards[i]
		if filter.Rarity != "" && r.Rarity != filter.Rarity {
			continue
		}
		if filter.ActionType != "" && r.ActionType != filter.ActionType {
			continue
		}
		if filter.TodayOnly && !r.EarnedOn(now) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// RewardsSince returns rewards minted strictly after the given instant,
// oldest first. Used by the notification stream.
func (s *LedgerService) RewardsSince(userID string, after time.Time) []models.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	var out []models.Reward
	for i := range st.Rewards {
		if st.Rewards[i].EarnedAt.Time().After(after) {
			out = append(out, st.Rewards[i])
		}
	}
	return out
}

// Count returns the number of live rewards
func (s *LedgerService) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state(userID).Rewards)
}

// HasCheckin reports whether a prior check-in reward exists for the location.
// Existence of such a reward is the sole record of a previous check-in.
func (s *LedgerService) HasCheckin(userID, locationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	for i := range st.Rewards {
		r := &st.Rewards[i]
		if r.ActionType != models.ActionLocationCheckin {
			continue
		}
		if r.Metadata != nil && r.Metadata.Checkin != nil && r.Metadata.Checkin.LocationID == locationID {
			return true
		}
	}
	return false
}

// cloneProfile deep-copies a profile so callers never hold a reference to the
// live RewardsByRarity map, which later mints keep mutating.
func cloneProfile(p *models.UserProfile) models.UserProfile {
	copied := *p
	copied.RewardsByRarity = make(map[models.Rarity]int, len(p.RewardsByRarity))
	for k, v := range p.RewardsByRarity {
		copied.RewardsByRarity[k] = v
	}
	return copied
}

// Profile returns a copy of the user's profile
func (s *LedgerService) Profile(userID string) models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProfile(s.state(userID).Profile)
}

// UpdatePreferences replaces the profile's preference flags
func (s *LedgerService) UpdatePreferences(userID string, prefs models.Preferences) models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	st.Profile.Preferences = prefs
	s.persist(userID, st)
	return cloneProfile(st.Profile)
}

// UpdateIdentity sets display name and/or avatar (empty strings keep current)
func (s *LedgerService) UpdateIdentity(userID, displayName, avatar string) models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	if displayName != "" {
		st.Profile.DisplayName = displayName
	}
	if avatar != "" {
		st.Profile.Avatar = avatar
	}
	s.persist(userID, st)
	return cloneProfile(st.Profile)
}

// PersistError returns the last storage failure for the user, nil when clean
func (s *LedgerService) PersistError(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(userID).persistErr
}

// Export serializes the full ledger + profile as an interchange document
func (s *LedgerService) Export(userID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	doc := models.ExportDocument{
		Version:    models.ExportVersion,
		ExportedAt: models.NewTaggedDate(time.Now()),
		Rewards:    st.Rewards,
		Profile:    st.Profile,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import replaces the ledger wholesale after validating the document. A
// missing top-level reward list or profile is a structural failure and leaves
// the existing state untouched; per-reward missing identifiers and timestamps
// are repaired rather than rejected. Counters are rebuilt from the imported
// rewards so the aggregate invariant holds regardless of document contents.
func (s *LedgerService) Import(userID string, payload []byte) error {
	var doc models.ExportDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("invalid format: not a valid export document")
	}
	if doc.Rewards == nil {
		return fmt.Errorf("invalid format: missing rewards list")
	}
	if doc.Profile == nil {
		return fmt.Errorf("invalid format: missing userProfile")
	}

	now := time.Now()
	for i := range doc.Rewards {
		r := &doc.Rewards[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.EarnedAt.IsZero() {
			r.EarnedAt = models.NewTaggedDate(now)
		}
		if !r.Rarity.Valid() {
			r.Rarity = models.RarityCommon
		}
		if !r.ActionType.Valid() {
			r.ActionType = models.ActionCodeScan
		}
	}

	profile := *doc.Profile
	if profile.ID == "" {
		profile.ID = userID
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = models.NewTaggedDate(now)
	}
	profile.RecountFrom(doc.Rewards)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)
	st.Rewards = doc.Rewards
	st.Profile = &profile
	s.persist(userID, st)
	return nil
}

// Users returns the ids of ledgers currently resident in memory
func (s *LedgerService) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.states))
	for userID := range s.states {
		out = append(out, userID)
	}
	return out
}

// FlushDirty retries persistence for every user whose last write failed.
// Returns how many users were flushed successfully.
func (s *LedgerService) FlushDirty() int {
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
