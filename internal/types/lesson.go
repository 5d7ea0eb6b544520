package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Lesson struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Topic      string         `gorm:"column:topic;not null" json:"topic"`
	GradeLevel string         `gorm:"column:grade_level;not null" json:"grade_level"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Status     string         `gorm:"column:status;not null;index" json:"status"` // generating|ready|failed
	Script     datatypes.JSON `gorm:"column:script;type:jsonb" json:"script,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
