package storage

import "time"

// Campaign is a persistent tabletop-game instance with one DM and multiple
// player members.
type Campaign struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Name      string           `gorm:"not null" json:"name"`
	DMUserID  string           `gorm:"index;not null" json:"dm_user_id"`
	Members   []CampaignMember `gorm:"constraint:OnDelete:CASCADE" json:"members"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"-"`
}

type CampaignMember struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CampaignID uint   `gorm:"index;not null" json:"campaign_id"`
	UserID     string `gorm:"index;not null" json:"user_id"`
	UserName   string `json:"user_name"`
}

// Character is one player character sheet.
type Character struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CampaignID   uint      `gorm:"index;not null" json:"campaign_id"`
	OwnerUserID  string    `gorm:"index;not null" json:"owner_user_id"`
	Name         string    `gorm:"not null" json:"name"`
	Race         string    `json:"race"`
	Class        string    `json:"class"`
	Level        int       `json:"level"`
	MaxHP        int       `json:"max_hp"`
	ArmorClass   int       `json:"armor_class"`
	Strength     int       `json:"strength"`
	Dexterity    int       `json:"dexterity"`
	Constitution int       `json:"constitution"`
	Intelligence int       `json:"intelligence"`
	Wisdom       int       `json:"wisdom"`
	Charisma     int       `json:"charisma"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// Monster is one compendium entry, reference data for encounter setup.
type Monster struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"uniqueIndex;not null" json:"name"`
	ChallengeRating string `json:"challenge_rating"`
	HitPoints       int    `json:"hit_points"`
	ArmorClass      int    `json:"armor_class"`
}
