package models

import "time"

const DailyChallengePoints = 10

type UserPoints struct {
	UserID        string    `gorm:"primaryKey;type:text" json:"user_id"`
	TotalPoints   int       `gorm:"not null;default:0" json:"total_points"`
	LastCompleted string    `gorm:"not null;default:''" json:"last_completed"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (UserPoints) TableName() string {
	return "user_points"
}

type Journal struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:uidx_journals_user_date" json:"user_id,omitempty"`
	Date      string    `gorm:"not null;uniqueIndex:uidx_journals_user_date" json:"date"`
	Title     string    `gorm:"not null;default:''" json:"title"`
	Entry     string    `gorm:"not null;default:''" json:"entry"`
	Tags      []string  `gorm:"serializer:json" json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DailyMessage struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	UserID      string    `gorm:"not null;index" json:"user_id"`
	MessageText string    `gorm:"not null" json:"message_text"`
	Read        bool      `gorm:"not null;default:false" json:"read"`
	SentAt      time.Time `gorm:"not null" json:"sent_at"`
}

type DailyChallenge struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Text string `gorm:"not null" json:"text"`
}

type MotivationalTemplate struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Text string `gorm:"not null" json:"text"`
}
