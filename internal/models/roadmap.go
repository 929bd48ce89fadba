package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GeneratedRoadmap stores a validated roadmap generated for a signed-in user.
type GeneratedRoadmap struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    string         `gorm:"size:128;index;not null"`
	Career    string         `gorm:"size:255;not null"`
	CareerKey string         `gorm:"size:255;index"`
	Model     string         `gorm:"size:128"`
	Payload   datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// BeforeSave normalises the career lookup key.
func (r *GeneratedRoadmap) BeforeSave(tx *gorm.DB) error {
	r.Career = strings.TrimSpace(r.Career)
	if r.CareerKey == "" {
		r.CareerKey = strings.ToLower(strings.Join(strings.Fields(r.Career), " "))
	}
	return nil
}
