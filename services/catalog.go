package services

import (
	"errors"
	"log"

	"reward-collect-system/models"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// CatalogService answers the core's only catalog questions: does this
// code/location/video exist, and what reward and threshold does it carry.
// The tables are read-only to the rest of the system.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// FindCode looks up an active scan code, nil when unknown
func (s *CatalogService) FindCode(code string) (*models.ScanCode, error) {
	var entry models.ScanCode
	err := s.DB.Where("code = ? AND active = ?", code, true).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindLocation looks up an active check-in location by its stable slug id
func (s *CatalogService) FindLocation(locationID string) (*models.CheckinLocation, error) {
	var entry models.CheckinLocation
	err := s.DB.Where("location_id = ? AND active = ?", locationID, true).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindVideo looks up an active catalog video
func (s *CatalogService) FindVideo(videoID string) (*models.CatalogVideo, error) {
	var entry models.CatalogVideo
	err := s.DB.Where("video_id = ? AND active = ?", videoID, true).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListLocations returns the active check-in targets for the map view
func (s *CatalogService) ListLocations() ([]models.CheckinLocation, error) {
	var entries []models.CheckinLocation
	err := s.DB.Where("active = ?", true).Order("name ASC").Find(&entries).Error
	return entries, err
}

// ListVideos returns the active videos for the watch tab
func (s *CatalogService) ListVideos() ([]models.CatalogVideo, error) {
	var entries []models.CatalogVideo
	err := s.DB.Where("active = ?", true).Order("title ASC").Find(&entries).Error
	return entries, err
}

var titleCaser = cases.Title(language.English)

// SeedCatalog inserts the default catalog on an empty database. Slugs are
// derived from the display names; names are normalized to title case.
func (s *CatalogService) SeedCatalog() error {
	var count int64
	if err := s.DB.Model(&models.ScanCode{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	codes := []models.ScanCode{
		{Code: "WELCOME2024", RewardName: titleCaser.String("coffee bean"), Rarity: string(models.RarityCommon), Icon: "☕", Description: "A humble start to any collection"},
		{Code: "GOLDEN-TICKET", RewardName: titleCaser.String("golden ticket"), Rarity: string(models.RarityLegendary), Icon: "🎫", Description: "Straight out of the wrapper"},
		{Code: "MYSTERY-BOX", RewardName: titleCaser.String("mystery box"), Rarity: models.RandomRarity, Icon: "📦", Description: "Could be anything"},
	}
	for i := range codes {
		codes[i].Slug = slug.Make(codes[i].RewardName)
	}

	locations := []models.CheckinLocation{
		{Name: titleCaser.String("times square flagship"), Latitude: 40.7589, Longitude: -73.9851, RadiusM: 50, RewardName: titleCaser.String("city explorer pin"), Rarity: string(models.RarityRare), Icon: "📍", Description: "Checked in at the flagship"},
		{Name: titleCaser.String("harbor pop-up"), Latitude: 40.7033, Longitude: -74.0170, RadiusM: 75, RewardName: titleCaser.String("harbor compass"), Rarity: string(models.RarityEpic), Icon: "🧭", Description: "Found the pop-up by the water"},
	}
	for i := range locations {
		locations[i].LocationID = slug.Make(locations[i].Name)
	}

	videos := []models.CatalogVideo{
		{VideoID: slug.Make("brand story"), Title: titleCaser.String("brand story"), DurationSeconds: 30, MinWatchSeconds: 15, RewardName: titleCaser.String("story seeker badge"), Rarity: string(models.RarityCommon), Icon: "🎬", Description: "Watched the origin story"},
		{VideoID: slug.Make("roastery tour"), Title: titleCaser.String("roastery tour"), DurationSeconds: 120, MinWatchSeconds: 60, RewardName: titleCaser.String("roastery insider"), Rarity: string(models.RarityRare), Icon: "🏭", Description: "Toured the roastery end to end"},
	}

	if err := s.DB.Create(&codes).Error; err != nil {
		return err
	}
	if err := s.DB.Create(&locations).Error; err != nil {
		return err
	}
	if err := s.DB.Create(&videos).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded catalog: %d codes, %d locations, %d videos", len(codes), len(locations), len(videos))
	return nil
}
