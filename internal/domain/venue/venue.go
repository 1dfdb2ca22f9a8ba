package venue

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MapURLBase is the map-service query endpoint used for derived map links
const MapURLBase = "https://www.google.com/maps?q="

// Venue is a place hosting wellness activities
type Venue struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Name        string     `json:"name" gorm:"size:200;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Address     string     `json:"address" gorm:"size:255;not null"`
	Latitude    float64    `json:"latitude" gorm:"not null"`
	Longitude   float64    `json:"longitude" gorm:"not null"`
	MapURL      string     `json:"map_url" gorm:"size:500"`
	PhotoKey    string     `json:"photo_key,omitempty" gorm:"size:255"`
	Active      bool       `json:"active" gorm:"not null;default:true"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty" gorm:"type:uuid"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Venue) TableName() string {
	return "venues"
}

// BeforeCreate sets a UUID before creating the record
func (v *Venue) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// NewVenue builds an active venue. Inputs are expected to be validated and
// trimmed already; an empty mapURL is derived from the coordinate.
func NewVenue(name, description, address string, latitude, longitude float64, mapURL string, createdBy *uuid.UUID) *Venue {
	if mapURL == "" {
		mapURL = DeriveMapURL(latitude, longitude)
	}
	return &Venue{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Address:     address,
		Latitude:    latitude,
		Longitude:   longitude,
		MapURL:      mapURL,
		Active:      true,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
}

// DeriveMapURL builds a map query link embedding the exact coordinate
func DeriveMapURL(latitude, longitude float64) string {
	return MapURLBase + (&Venue{Latitude: latitude, Longitude: longitude}).Coordinates()
}

// FormatCoordinate renders a coordinate with the shortest exact representation
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Coordinates returns "lat,lon"
func (v *Venue) Coordinates() string {
	return FormatCoordinate(v.Latitude) + "," + FormatCoordinate(v.Longitude)
}

// HasDerivedMapURL reports whether the stored map link is the one derived from
// the current coordinate
func (v *Venue) HasDerivedMapURL() bool {
	return v.MapURL == DeriveMapURL(v.Latitude, v.Longitude)
}

// ValidLatitude reports whether lat is within [-90, 90]. NaN is rejected.
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lon is within [-180, 180]. NaN is rejected.
func ValidLongitude(lon float64) bool {
	return lon >= -180 && lon <= 180
}
