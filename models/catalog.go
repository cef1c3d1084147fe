package models

import (
	"time"

	"gorm.io/gorm"
)

// Catalog tables are read-only collaborators for the rewards core: they say
// whether a code/location/video exists and which reward it carries. The core
// never writes them outside of startup seeding.

// RandomRarity marks a catalog entry whose rarity is rolled per mint using
// RarityWeights instead of being fixed.
const RandomRarity = "random"

// ScanCode maps a scannable code to the reward it grants
type ScanCode struct {
	ID          string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code        string         `gorm:"uniqueIndex;not null" json:"code"`
	Slug        string         `gorm:"index" json:"slug"`
	RewardName  string         `gorm:"not null" json:"reward_name"`
	Rarity      string         `gorm:"type:varchar(16);default:'common'" json:"rarity"` // a Rarity value, or "random"
	Icon        string         `gorm:"size:10" json:"icon"`
	Description string         `gorm:"type:text" json:"description"`
	Active      bool           `gorm:"default:true" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CheckinLocation is a geofenced place worth a check-in reward
type CheckinLocation struct {
	ID          string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LocationID  string         `gorm:"uniqueIndex;not null" json:"location_id"` // stable slug used in reward metadata
	Name        string         `gorm:"not null" json:"name"`
	Latitude    float64        `gorm:"not null" json:"latitude"`
	Longitude   float64        `gorm:"not null" json:"longitude"`
	RadiusM     float64        `gorm:"not null;default:50" json:"radius_m"`
	RewardName  string         `gorm:"not null" json:"reward_name"`
	Rarity      string         `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	Icon        string         `gorm:"size:10" json:"icon"`
	Description string         `gorm:"type:text" json:"description"`
	Active      bool           `gorm:"default:true" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CatalogVideo is a watchable video with its minimum watch threshold
type CatalogVideo struct {
	ID              string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	VideoID         string         `gorm:"uniqueIndex;not null" json:"video_id"`
	Title           string         `gorm:"not null" json:"title"`
	DurationSeconds float64        `gorm:"not null" json:"duration_seconds"`
	MinWatchSeconds float64        `gorm:"not null;default:15" json:"min_watch_seconds"`
	RewardName      string         `gorm:"not null" json:"reward_name"`
	Rarity          string         `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	Icon            string         `gorm:"size:10" json:"icon"`
	Description     string         `gorm:"type:text" json:"description"`
	Active          bool           `gorm:"default:true" json:"active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
