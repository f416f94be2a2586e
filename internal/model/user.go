package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// User is the single resource managed by the service.
// This is a pure domain model with no database-specific dependencies or tags.
//
// ID is assigned by the caller. CreatedAt and UpdatedAt are owned by the repository:
// values supplied by callers are ignored on Create and Update.
type User struct {
	ID         uuid.UUID  `json:"id" validate:"required"`
	Name       string     `json:"name" validate:"required,max=255"`
	BirthDate  civil.Date `json:"birth_date" validate:"required" swaggertype:"string" format:"date" example:"1977-03-10"`
	CustomData CustomData `json:"custom_data"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// CustomData is the application-specific payload stored verbatim with each user.
type CustomData struct {
	Random uint32 `json:"random"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		out.UpdatedAt = &t
	}
	return &out
}
