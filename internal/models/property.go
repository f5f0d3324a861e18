package models

import (
	"time"

	"gorm.io/datatypes"
)

type PropertyType string

const (
	PropertyTypeApartment      PropertyType = "apartment"
	PropertyTypeVilla          PropertyType = "villa"
	PropertyTypeTownhouse      PropertyType = "townhouse"
	PropertyTypePenthouse      PropertyType = "penthouse"
	PropertyTypeStudio         PropertyType = "studio"
	PropertyTypeDuplex         PropertyType = "duplex"
	PropertyTypeOffice         PropertyType = "office"
	PropertyTypeShop           PropertyType = "shop"
	PropertyTypeWarehouse      PropertyType = "warehouse"
	PropertyTypeLand           PropertyType = "land"
	PropertyTypeBuilding       PropertyType = "building"
	PropertyTypeHotelApartment PropertyType = "hotel_apartment"
	PropertyTypeOther          PropertyType = "other"
)

type ListingType string

const (
	ListingTypeSale ListingType = "sale"
	ListingTypeRent ListingType = "rent"
)

type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusArchived PropertyStatus = "archived"
	PropertyStatusSold     PropertyStatus = "sold"
	PropertyStatusRented   PropertyStatus = "rented"
	PropertyStatusPending  PropertyStatus = "pending"
)

type Coordinates struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type Location struct {
	Address     string      `gorm:"size:255" json:"address"`
	City        string      `gorm:"size:100;index" json:"city"`
	State       string      `gorm:"size:100;index" json:"state"`                             // emirate
	ZipCode     string      `gorm:"size:20" json:"zipCode"`
	Coordinates Coordinates `gorm:"embedded;embeddedPrefix:coordinates_" json:"coordinates"`
}

type Property struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	Title       string                      `gorm:"size:200;not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Price       float64                     `gorm:"not null;index" json:"price"`
	Location    Location                    `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Type        PropertyType                `gorm:"size:30;not null;index" json:"type"`
	ListingType ListingType                 `gorm:"size:10;not null" json:"listingType"`
	Bedrooms    int                         `gorm:"not null;default:0" json:"bedrooms"`
	Bathrooms   int                         `gorm:"not null;default:0" json:"bathrooms"`
	Area        float64                     `gorm:"not null" json:"area"`                                // sqft
	Amenities   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"amenities"`
	Images      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"images"`
	Status      PropertyStatus              `gorm:"size:20;not null;default:active;index" json:"status"`
	Featured    bool                        `gorm:"not null;default:false" json:"featured"`
	AgentID     uint                        `gorm:"not null;index" json:"agentId"`
	Agent       *User                       `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	CreatedAt   time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

var propertyTypes = map[PropertyType]bool{
	PropertyTypeApartment: true, PropertyTypeVilla: true, PropertyTypeTownhouse: true,
	PropertyTypePenthouse: true, PropertyTypeStudio: true, PropertyTypeDuplex: true,
	PropertyTypeOffice: true, PropertyTypeShop: true, PropertyTypeWarehouse: true,
	PropertyTypeLand: true, PropertyTypeBuilding: true, PropertyTypeHotelApartment: true,
	PropertyTypeOther: true,
}

func (t PropertyType) Valid() bool { return propertyTypes[t] }

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusActive, PropertyStatusArchived, PropertyStatusSold, PropertyStatusRented, PropertyStatusPending:
		return true
	}
	return false
}
