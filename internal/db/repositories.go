package db

import "gorm.io/gorm"

type Repositories struct {
	Users      *UserRepository
	Profiles   *ProfileRepository
	Progress   *ProgressRepository
	Milestones *MilestoneRepository
	Points     *PointsRepository
	Journals   *JournalRepository
	Messages   *MessageRepository
	Content    *ContentRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(database),
		Profiles:   NewProfileRepository(database),
		Progress:   NewProgressRepository(database),
		Milestones: NewMilestoneRepository(database),
		Points:     NewPointsRepository(database),
		Journals:   NewJournalRepository(database),
		Messages:   NewMessageRepository(database),
		Content:    NewContentRepository(database),
	}
}
