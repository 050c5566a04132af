package query

import "time"

type Query struct {
	ID             int64     `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	Keywords       string    `json:"keywords" db:"keywords"`
	WorkTypes      []int     `json:"workTypes" db:"work_types"`
	CityID         *int      `json:"cityId,omitempty" db:"city_id"`
	LocationString *string   `json:"locationString,omitempty" db:"location_string"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateQueryRequest struct {
	Keywords       string  `json:"keywords"`
	WorkTypes      []int   `json:"workTypes"`
	CityID         *int    `json:"cityId,omitempty"`
	LocationString *string `json:"locationString,omitempty"`
}

type UpdateQueryRequest struct {
	Keywords       *string `json:"keywords,omitempty"`
	WorkTypes      []int   `json:"workTypes,omitempty"`
	CityID         *int    `json:"cityId,omitempty"`
	LocationString *string `json:"locationString,omitempty"`
	IsActive       *bool   `json:"isActive,omitempty"`
}
