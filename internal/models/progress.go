package models

import "time"

const TotalChapters = 20

type ProgressRecord struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	UserID        string    `gorm:"not null;uniqueIndex:uidx_user_progress_chapter" json:"user_id"`
	ChapterNumber int       `gorm:"not null;uniqueIndex:uidx_user_progress_chapter" json:"chapter_number"`
	CompletedAt   time.Time `gorm:"not null" json:"completed_at"`
}

func (ProgressRecord) TableName() string {
	return "user_progress"
}

type MilestoneRecord struct {
	ID      uint      `gorm:"primaryKey" json:"-"`
	UserID  string    `gorm:"not null;uniqueIndex:uidx_milestones_user_chapter" json:"user_id"`
	Chapter int       `gorm:"not null;uniqueIndex:uidx_milestones_user_chapter" json:"chapter"`
	SentAt  time.Time `gorm:"not null" json:"sent_at"`
}

func (MilestoneRecord) TableName() string {
	return "milestones_sent"
}
