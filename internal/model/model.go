// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//---------------------

type Listing struct {
	ID                uuid.UUID   `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Price             int64       `json:"price"`
	Location          string      `json:"location"`
	Year              int         `json:"year"`
	KmDriven          int         `json:"km_driven"`
	FuelType          string      `json:"fuel_type"`
	Transmission      string      `json:"transmission"`
	BodyType          string      `json:"body_type,omitempty"`
	Color             string      `json:"color,omitempty"`
	EngineCapacity    string      `json:"engine_capacity,omitempty"`
	PowerOutput       string      `json:"power_output,omitempty"`
	Torque            string      `json:"torque,omitempty"`
	SeatingCapacity   int         `json:"seating_capacity,omitempty"`
	FuelConsumption   string      `json:"fuel_consumption,omitempty"`
	OwnerCount        int         `json:"owner_count,omitempty"`
	RegistrationState string      `json:"registration_state,omitempty"`
	Features          StringSlice `json:"features"`
	ImageURLs         StringSlice `json:"image_urls"`
	CreatedAt         *time.Time  `json:"created_at,omitempty"`
	UpdatedAt         *time.Time  `json:"updated_at,omitempty"`
}

// ListingCreateData - метаданные объявления плюс новые файлы
type ListingCreateData struct {
	Listing Listing
	Images  []SourceImage
}

// ListingUpdateData - то же самое, но с изображениями, которые остались в UI после правок
type ListingUpdateData struct {
	Listing       Listing
	CurrentImages []string
	Images        []SourceImage
}

// ListingResult is what create/update return: the stored listing and non-fatal upload notices.
type ListingResult struct {
	Listing      *Listing `json:"listing"`
	FallbackUsed bool     `json:"fallback_used"`
	Warnings     []string `json:"warnings,omitempty"`
}

//-------------------

type ListRequest struct {
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
	Search   string `form:"search"`
	MinPrice *int64 `form:"min_price"`
	MaxPrice *int64 `form:"max_price"`
	MinYear  *int   `form:"min_year"`
	MaxYear  *int   `form:"max_year"`
	Sort     string `form:"sort"`
}

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortYearDesc  = "year_desc"
	SortYearAsc   = "year_asc"
	SortKmAsc     = "km_asc"
)

// SortColumns maps public sort names to ORDER BY clauses
var SortColumns = map[string]string{
	SortNewest:    "created_at DESC",
	SortPriceAsc:  "price ASC",
	SortPriceDesc: "price DESC",
	SortYearDesc:  "year DESC",
	SortYearAsc:   "year ASC",
	SortKmAsc:     "km_driven ASC",
}

//-------------------

// CleanupTask is the body of a message in the image cleanup topic.
type CleanupTask struct {
	ListingID string   `json:"listing_id"`
	URLs      []string `json:"urls"`
}

// UploadResult is returned by the bare image upload endpoint.
type UploadResult struct {
	URLs         []string `json:"urls"`
	FallbackUsed bool     `json:"fallback_used"`
	Warnings     []string `json:"warnings,omitempty"`
}

// UploadConfig describes which provider receives uploads first.
type UploadConfig struct {
	ObjectStorageEnabled bool   `json:"object_storage_enabled"`
	CDNAsPrimary         bool   `json:"cdn_as_primary"`
	PrimaryProvider      string `json:"primary_provider"`
	FallbackProvider     string `json:"fallback_provider"`
}

// ------------------

var (
	ErrCommon500       error = errors.New("something went wrong. Try again later")        // 500
	ErrIncorrectQuery  error = errors.New("incorrect query parameters")                   // 400
	ErrIncorrectID     error = errors.New("incorrect listing UUID")                       // 400
	ErrListingNotFound error = errors.New("specified listing UUID doesn't exist")         // 404
	ErrInvalidListing  error = errors.New("incorrect listing data provided")              // 400
	ErrNoImages        error = errors.New("at least one image is required")               // 400
	ErrTooManyImages   error = errors.New("too many images for a single listing")         // 400
	ErrInvalidConfig   error = errors.New("incorrect compression parameters")             // 400
	ErrDecode          error = errors.New("source file cannot be decoded as an image")    // 400
	ErrEncoding        error = errors.New("image encoding produced no output")            // 500
	ErrUploadFailed    error = errors.New("failed to store image in any upload provider") // 502
)

// FileError binds a pipeline failure to the file that caused it.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("image %q: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	WEBP = "image/webp"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	WEBP: ".webp",
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("invalid type %T for StringSlice", value)
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal StringSlice to JSONB: %w", err)
	}

	return res, nil
}
