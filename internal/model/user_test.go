package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUser() *User {
	return &User{
		ID:         uuid.New(),
		Name:       "Rob",
		BirthDate:  civil.Date{Year: 1977, Month: time.March, Day: 10},
		CustomData: CustomData{Random: 1},
	}
}

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(u *User)
		wantField string
	}{
		{
			name:   "valid user",
			mutate: func(u *User) {},
		},
		{
			name:      "nil id",
			mutate:    func(u *User) { u.ID = uuid.Nil },
			wantField: "id",
		},
		{
			name:      "empty name",
			mutate:    func(u *User) { u.Name = "" },
			wantField: "name",
		},
		{
			name:      "name too long",
			mutate:    func(u *User) { u.Name = strings.Repeat("a", 256) },
			wantField: "name",
		},
		{
			name:      "zero birth date",
			mutate:    func(u *User) { u.BirthDate = civil.Date{} },
			wantField: "birth_date",
		},
		{
			name:      "impossible birth date",
			mutate:    func(u *User) { u.BirthDate = civil.Date{Year: 2001, Month: time.February, Day: 30} },
			wantField: "birth_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUser()
			tt.mutate(u)

			err := u.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}
}

func TestUser_Clone(t *testing.T) {
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	u := validUser()
	u.UpdatedAt = &updated

	c := u.Clone()
	assert.Equal(t, u, c)

	c.Name = "Robert"
	*c.UpdatedAt = updated.Add(time.Hour)
	assert.Equal(t, "Rob", u.Name)
	assert.Equal(t, updated, *u.UpdatedAt)

	var nilUser *User
	assert.Nil(t, nilUser.Clone())
}

func TestUser_JSON(t *testing.T) {
	u := validUser()
	u.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	b, err := json.Marshal(u)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "1977-03-10", raw["birth_date"])
	assert.Equal(t, map[string]any{"random": float64(1)}, raw["custom_data"])
	assert.Nil(t, raw["updated_at"])

	var back User
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, u.BirthDate, back.BirthDate)
	assert.Equal(t, u.ID, back.ID)
}
