package vehicles

import (
	"strconv"
	"time"
)

// StorageKind says where an attached image actually lives, so deletion can
// dispatch correctly instead of sniffing URL prefixes.
type StorageKind string

const (
	// StorageRemote marks an image held by the remote asset store.
	StorageRemote StorageKind = "remote"
	// StorageLocal marks a legacy locally-served image.
	StorageLocal StorageKind = "local"
)

// Image is one attached vehicle photo.
type Image struct {
	URL         string      `json:"url"`
	StorageKind StorageKind `json:"storage_kind"`
	// ObjectID is the remote store's key; empty for local images.
	ObjectID string `json:"object_id,omitempty"`
	Position int    `json:"position"`
}

// Specifications mirrors the free-form spec sheet of a listing.
type Specifications struct {
	Engine       string `json:"engine,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Mileage      int64  `json:"mileage,omitempty"`
	FuelType     string `json:"fuelType,omitempty"`
	BodyType     string `json:"bodyType,omitempty"`
	Color        string `json:"color,omitempty"`
}

// Vehicle is a sale listing.
type Vehicle struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Price          int64          `json:"price"`
	Year           int            `json:"year"`
	Make           string         `json:"make"`
	Model          string         `json:"model"`
	Description    string         `json:"description"`
	Features       []string       `json:"features"`
	Specifications Specifications `json:"specifications"`
	Images         []Image        `json:"images"`
	Featured       bool           `json:"featured"`
	Status         string         `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// UpsertInput carries a create or update payload.
type UpsertInput struct {
	Title          string         `json:"title" validate:"required"`
	Price          int64          `json:"price" validate:"required,gt=0"`
	Year           int            `json:"year" validate:"required,gte=1900"`
	Make           string         `json:"make" validate:"required"`
	Model          string         `json:"model" validate:"required"`
	Description    string         `json:"description" validate:"required"`
	Features       []string       `json:"features"`
	Specifications Specifications `json:"specifications"`
	Featured       *bool          `json:"featured"`
	Status         string         `json:"status" validate:"omitempty,oneof=available sold reserved"`
}

// Label is the human-readable identity used in audit entries.
func (v Vehicle) Label() string {
	return v.Make + " " + v.Model + " (" + strconv.Itoa(v.Year) + ")"
}
