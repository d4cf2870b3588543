package models

import (
	"time"
)

// SecurityEvent stores one pipeline decision so it can be audited and
// aggregated by the threat monitor. Events are append-only; nothing in
// the request path reads them back.
type SecurityEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	Kind      string    `json:"kind"`     // e.g., allowed, validation_block, rate_limited, banned
	Severity  string    `json:"severity"` // info, warning, critical
	ClientKey string    `json:"client_key" gorm:"index"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Reason    string    `json:"reason"`
	Duration  int64     `json:"duration_us"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
