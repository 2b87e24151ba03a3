package model

import "time"

type Machine struct {
	ID               string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name             string         `json:"name" bson:"name" validate:"required,min=2,max=200"`
	Description      string         `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=1000"`
	Department       string         `json:"department" bson:"department" validate:"required,min=2,max=100"`
	Location         string         `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=200"`
	Specifications   map[string]any `json:"specifications,omitempty" bson:"specifications,omitempty" validate:"omitempty"`
	ImageURL         string         `json:"image_url,omitempty" bson:"image_url,omitempty" validate:"omitempty,url,max=500"`
	IsActive         bool           `json:"is_active" bson:"is_active"`
	RequiresTraining bool           `json:"requires_training" bson:"requires_training"`
	CreatedAt        time.Time      `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type MachineUpdate struct {
	Name             string          `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description      *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	Department       string          `json:"department,omitempty" validate:"omitempty,min=2,max=100"`
	Location         *string         `json:"location,omitempty" validate:"omitempty,max=200"`
	Specifications   *map[string]any `json:"specifications,omitempty" validate:"omitempty"`
	ImageURL         *string         `json:"image_url,omitempty" validate:"omitempty,max=500"`
	IsActive         *bool           `json:"is_active,omitempty"`
	RequiresTraining *bool           `json:"requires_training,omitempty"`
}
