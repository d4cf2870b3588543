package models

import (
	"time"
)

// ThreatReport is a daily aggregate written by the threat monitor.
type ThreatReport struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Day       string    `json:"day" gorm:"index"` // YYYY-MM-DD
	Total     int64     `json:"total"`
	Blocked   int64     `json:"blocked"`
	Critical  int64     `json:"critical"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}
