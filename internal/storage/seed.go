package storage

import "gorm.io/gorm/clause"

// Baseline monster compendium, enough for encounter setup against a fresh
// database. Real data imports happen out of band.
var seedMonsters = []Monster{
	{Name: "Goblin", ChallengeRating: "1/4", HitPoints: 7, ArmorClass: 15},
	{Name: "Orc", ChallengeRating: "1/2", HitPoints: 15, ArmorClass: 13},
	{Name: "Skeleton", ChallengeRating: "1/4", HitPoints: 13, ArmorClass: 13},
	{Name: "Dire Wolf", ChallengeRating: "1", HitPoints: 37, ArmorClass: 14},
	{Name: "Ogre", ChallengeRating: "2", HitPoints: 59, ArmorClass: 11},
	{Name: "Owlbear", ChallengeRating: "3", HitPoints: 59, ArmorClass: 13},
	{Name: "Troll", ChallengeRating: "5", HitPoints: 84, ArmorClass: 15},
	{Name: "Young Red Dragon", ChallengeRating: "10", HitPoints: 178, ArmorClass: 18},
}

// SeedMonsters inserts the baseline compendium, skipping names that exist.
func (s *Store) SeedMonsters() error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&seedMonsters).Error
}
