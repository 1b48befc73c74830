package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// Cafe is a single log entry: a visited café or a wishlist entry.
type Cafe struct {
	ID            string     `json:"id" msgpack:"id"`
	GooglePlaceID string     `json:"google_place_id,omitempty" msgpack:"google_place_id"`
	Name          string     `json:"name" msgpack:"name"`
	Address       string     `json:"address,omitempty" msgpack:"address"`
	Location      *GeoPoint  `json:"location,omitempty" msgpack:"location"`
	Rating        int        `json:"rating" msgpack:"rating"`
	Notes         string     `json:"notes,omitempty" msgpack:"notes"`
	Wishlist      bool       `json:"wishlist" msgpack:"wishlist"`
	VisitDate     *time.Time `json:"visit_date,omitempty" msgpack:"visit_date"`
	Tags          []string   `json:"tags" msgpack:"tags"`
	PhotoIDs      []string   `json:"photo_ids" msgpack:"photo_ids"`
	MenuPhotoIDs  []string   `json:"menu_photo_ids" msgpack:"menu_photo_ids"`
	CreatedAt     time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" msgpack:"updated_at"`
}

// Visited reports whether the entry is a check-in rather than a wishlist item.
func (c *Cafe) Visited() bool { return !c.Wishlist }

// VisitedAt is the date the café counts toward statistics.
func (c *Cafe) VisitedAt() time.Time {
	if c.VisitDate != nil {
		return *c.VisitDate
	}
	return c.CreatedAt
}

// CafeInput is the payload for creating a café entry.
type CafeInput struct {
	GooglePlaceID string     `json:"google_place_id" validate:"max=256"`
	Name          string     `json:"name" validate:"required,max=200"`
	Address       string     `json:"address" validate:"max=500"`
	Lat           *float64   `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lon           *float64   `json:"lon" validate:"omitempty,min=-180,max=180"`
	Rating        int        `json:"rating" validate:"min=0,max=5"`
	Notes         string     `json:"notes" validate:"max=5000"`
	Wishlist      bool       `json:"wishlist"`
	VisitDate     *time.Time `json:"visit_date"`
	Tags          []string   `json:"tags" validate:"max=20,dive,required,max=32"`
}

// CafeUpdate is a partial update; nil fields are left untouched.
type CafeUpdate struct {
	GooglePlaceID *string    `json:"google_place_id" validate:"omitempty,max=256"`
	Name          *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Address       *string    `json:"address" validate:"omitempty,max=500"`
	Lat           *float64   `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lon           *float64   `json:"lon" validate:"omitempty,min=-180,max=180"`
	Rating        *int       `json:"rating" validate:"omitempty,min=0,max=5"`
	Notes         *string    `json:"notes" validate:"omitempty,max=5000"`
	Wishlist      *bool      `json:"wishlist"`
	VisitDate     *time.Time `json:"visit_date"`
	Tags          []string   `json:"tags" validate:"omitempty,max=20,dive,required,max=32"`
}

// CafeFilter narrows List results.
type CafeFilter struct {
	Query    string // case-insensitive substring of name or address
	Wishlist *bool
}

// PhotoKind distinguishes ambience photos from menu photos.
type PhotoKind string

const (
	PhotoKindPhoto PhotoKind = "photo"
	PhotoKindMenu  PhotoKind = "menu"
)

// Photo is a compressed image attached to a café.
type Photo struct {
	ID          string    `json:"id" msgpack:"id"`
	CafeID      string    `json:"cafe_id" msgpack:"cafe_id"`
	Kind        PhotoKind `json:"kind" msgpack:"kind"`
	ContentType string    `json:"content_type" msgpack:"content_type"`
	Width       int       `json:"width" msgpack:"width"`
	Height      int       `json:"height" msgpack:"height"`
	Size        int       `json:"size" msgpack:"size"`
	Data        []byte    `json:"-" msgpack:"data"`
	CreatedAt   time.Time `json:"created_at" msgpack:"created_at"`
}

// YearCount is the number of visits in a calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// CafeStats summarises the log.
type CafeStats struct {
	Total     int         `json:"total"`
	Visited   int         `json:"visited"`
	Wishlist  int         `json:"wishlist"`
	AvgRating float64     `json:"avg_rating"`
	ThisYear  int         `json:"this_year"`
	Yearly    []YearCount `json:"yearly"`
	Monthly   [12]int     `json:"monthly"` // current year, January first
}

// NearbyCafe is a café with its great-circle distance from a query point.
type NearbyCafe struct {
	Cafe
	DistanceMeters float64 `json:"distance_m"`
}

// CafeEventType names a change to the log.
type CafeEventType string

const (
	CafeCreated CafeEventType = "created"
	CafeUpdated CafeEventType = "updated"
	CafeDeleted CafeEventType = "deleted"
)

// CafeEvent is published whenever a café entry changes.
type CafeEvent struct {
	Type   CafeEventType `json:"type"`
	CafeID string        `json:"cafe_id"`
	Time   time.Time     `json:"time"`
}

// PlacePrediction is a place search hit.
type PlacePrediction struct {
	PlaceID       string    `json:"place_id"`
	MainText      string    `json:"main_text"`
	SecondaryText string    `json:"secondary_text"`
	FullText      string    `json:"full_text"`
	Location      *GeoPoint `json:"location,omitempty"`
}
