// Package gorm provides GORM model definitions and repositories for the
// recipe catalog and the plan history
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// catalogStateID is the primary key of the single catalog_state row.
const catalogStateID = 1

// RecipeModel represents the GORM model for a recipe nutrient profile.
// Amounts are per serving.
type RecipeModel struct {
	ID       uuid.UUID   `gorm:"type:char(36);primaryKey"`
	Position int64       `gorm:"not null;index"`
	Title    string      `gorm:"type:varchar(255);not null;index"`
	Source   string      `gorm:"type:varchar(100)"`
	Tags     StringSlice `gorm:"type:json"`

	Protein      float64 `gorm:"not null;default:0"`
	Fat          float64 `gorm:"not null;default:0"`
	Carbohydrate float64 `gorm:"not null;default:0"`
	Calories     float64 `gorm:"not null;default:0"`
	Fiber        float64 `gorm:"not null;default:0"`
	Sodium       float64 `gorm:"not null;default:0"`
	Sugar        float64 `gorm:"not null;default:0"`
	Calcium      float64 `gorm:"not null;default:0"`
	Iron         float64 `gorm:"not null;default:0"`
	VitaminC     float64 `gorm:"column:vitamin_c;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name
func (RecipeModel) TableName() string {
	return "recipes"
}

// BeforeCreate hook for RecipeModel
func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// CatalogStateModel holds the catalog version, bumped in the same
// transaction as every recipe write.
type CatalogStateModel struct {
	ID        uint  `gorm:"primaryKey"`
	Version   int64 `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName overrides the table name
func (CatalogStateModel) TableName() string {
	return "catalog_state"
}

// PlanModel records one generated plan.
type PlanModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	IsFallback   bool      `gorm:"not null;default:false;index"`
	SolverStatus string    `gorm:"type:varchar(32);not null"`
	Message      string    `gorm:"type:text"`
	Recipes      JSONField `gorm:"type:json"`
	Achievement  JSONField `gorm:"type:json"`
	GeneratedAt  time.Time `gorm:"not null;index"`
	CreatedAt    time.Time
}

// TableName overrides the table name
func (PlanModel) TableName() string {
	return "meal_plans"
}

// AllModels returns every model for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&RecipeModel{},
		&CatalogStateModel{},
		&PlanModel{},
	}
}

// StringSlice custom type for handling string arrays stored as JSON
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

// JSONField holds an arbitrary JSON document
type JSONField json.RawMessage

// Scan implements the sql.Scanner interface
func (j *JSONField) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSONField(nil), v...)
	case string:
		*j = JSONField(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONField", value)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (j JSONField) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return string(j), nil
}
