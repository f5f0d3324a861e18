package models

import (
	"time"

	"gorm.io/datatypes"
)

type ClientStatus string

const (
	ClientStatusNew         ClientStatus = "new"
	ClientStatusContacted   ClientStatus = "contacted"
	ClientStatusQualified   ClientStatus = "qualified"
	ClientStatusScheduled   ClientStatus = "scheduled"
	ClientStatusViewed      ClientStatus = "viewed"
	ClientStatusNegotiating ClientStatus = "negotiating"
	ClientStatusClosed      ClientStatus = "closed"
	ClientStatusLost        ClientStatus = "lost"
)

type InquiryType string

const (
	InquiryGeneral      InquiryType = "general"
	InquiryViewing      InquiryType = "viewing"
	InquiryPricing      InquiryType = "pricing"
	InquiryAvailability InquiryType = "availability"
	InquiryInvestment   InquiryType = "investment"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type ClientSource string

const (
	SourceWebsite     ClientSource = "website"
	SourcePhone       ClientSource = "phone"
	SourceEmail       ClientSource = "email"
	SourceReferral    ClientSource = "referral"
	SourceSocialMedia ClientSource = "social_media"
	SourceWalkIn      ClientSource = "walk_in"
	SourceOther       ClientSource = "other"
)

type Budget struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type ClientRequirements struct {
	Bedrooms      *int     `json:"bedrooms,omitempty"`
	Bathrooms     *int     `json:"bathrooms,omitempty"`
	PropertyTypes []string `json:"propertyTypes,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	MustHave      []string `json:"mustHave,omitempty"`
}

// AgentNote sadece eklenir, güncellenmez.
type AgentNote struct {
	Note      string    `json:"note"`
	AuthorID  uint      `json:"authorId"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Client struct {
	ID           uint                                   `gorm:"primaryKey" json:"id"`
	Name         string                                 `gorm:"size:100;not null" json:"name"`
	Email        string                                 `gorm:"size:100;not null;index" json:"email"`
	Phone        string                                 `gorm:"size:30;not null" json:"phone"`
	Message      string                                 `gorm:"type:text" json:"message"`
	PropertyID   uint                                   `gorm:"not null;index" json:"propertyId"`
	Property     *Property                              `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	InquiryType  InquiryType                            `gorm:"size:20;not null;default:general" json:"inquiryType"`
	Status       ClientStatus                           `gorm:"size:20;not null;default:new;index" json:"status"`
	Priority     Priority                               `gorm:"size:10;not null;default:medium" json:"priority"`
	Budget       Budget                                 `gorm:"embedded;embeddedPrefix:budget_" json:"budget"`
	Requirements datatypes.JSONType[ClientRequirements] `gorm:"type:jsonb" json:"requirements"`
	AgentNotes   datatypes.JSONSlice[AgentNote]         `gorm:"type:jsonb" json:"agentNotes"`
	Source       ClientSource                           `gorm:"size:20;not null;default:website" json:"source"`
	IsActive     bool                                   `gorm:"not null;default:true;index" json:"isActive"`

	LastContactedAt *time.Time `json:"lastContactedAt"`
	NextFollowUpAt  *time.Time `gorm:"index" json:"nextFollowUpAt"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientStatusNew, ClientStatusContacted, ClientStatusQualified, ClientStatusScheduled,
		ClientStatusViewed, ClientStatusNegotiating, ClientStatusClosed, ClientStatusLost:
		return true
	}
	return false
}
