package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ViewingStatus string

const (
	ViewingScheduled   ViewingStatus = "scheduled"
	ViewingConfirmed   ViewingStatus = "confirmed"
	ViewingInProgress  ViewingStatus = "in_progress"
	ViewingCompleted   ViewingStatus = "completed"
	ViewingCancelled   ViewingStatus = "cancelled"
	ViewingNoShow      ViewingStatus = "no_show"
	ViewingRescheduled ViewingStatus = "rescheduled"
)

// ActiveViewingStatuses takvimde yer tutan durumlar. Çakışma kontrolü sadece bunlara bakar.
var ActiveViewingStatuses = []ViewingStatus{ViewingScheduled, ViewingConfirmed, ViewingInProgress}

func (s ViewingStatus) Active() bool {
	for _, a := range ActiveViewingStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s ViewingStatus) Valid() bool {
	switch s {
	case ViewingScheduled, ViewingConfirmed, ViewingInProgress, ViewingCompleted,
		ViewingCancelled, ViewingNoShow, ViewingRescheduled:
		return true
	}
	return false
}

type ViewingType string

const (
	ViewingIndividual ViewingType = "individual"
	ViewingGroup      ViewingType = "group"
	ViewingVirtual    ViewingType = "virtual"
	ViewingOpenHouse  ViewingType = "open_house"
)

type ViewingOutcome string

const (
	OutcomeNone          ViewingOutcome = ""
	OutcomeInterested    ViewingOutcome = "interested"
	OutcomeNotInterested ViewingOutcome = "not_interested"
	OutcomeOfferMade     ViewingOutcome = "offer_made"
	OutcomeNeedsFollowUp ViewingOutcome = "needs_followup"
)

type ClientFeedback struct {
	Rating     *int   `json:"rating,omitempty"` // 1-5
	Comment    string `json:"comment,omitempty"`
	Interested *bool  `json:"interested,omitempty"`
}

type Attendee struct {
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

type Reminder struct {
	Type   string    `json:"type"` // email, sms, call
	SendAt time.Time `json:"sendAt"`
	Sent   bool      `json:"sent"`
}

// Viewing tek bir an (ScheduledAt) olarak saklanır; tarih/saat ayrımı sadece API katmanında yapılır.
type Viewing struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PropertyID uint      `gorm:"not null;index:idx_viewings_property_time,priority:1" json:"propertyId"`
	Property   *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	ClientID   uint      `gorm:"not null;index" json:"clientId"`
	Client     *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ScheduledAt time.Time `gorm:"not null;index:idx_viewings_property_time,priority:2" json:"scheduledAt"`
	EndsAt      time.Time `gorm:"not null" json:"endsAt"`
	Duration    int       `gorm:"not null;default:60" json:"duration"` // dakika

	Status   ViewingStatus `gorm:"size:20;not null;default:scheduled;index" json:"status"`
	Priority Priority      `gorm:"size:10;not null;default:medium" json:"priority"`
	Type     ViewingType   `gorm:"size:20;not null;default:individual" json:"type"`

	AgentNotes     string                             `gorm:"type:text" json:"agentNotes"`
	ClientFeedback datatypes.JSONType[ClientFeedback] `gorm:"type:jsonb" json:"clientFeedback"`
	Outcome        ViewingOutcome                     `gorm:"size:20" json:"outcome"`
	Attendees      datatypes.JSONSlice[Attendee]      `gorm:"type:jsonb" json:"attendees"`
	Reminders      datatypes.JSONSlice[Reminder]      `gorm:"type:jsonb" json:"reminders"`

	IsActive  bool      `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Window görüntülemenin [başlangıç, bitiş) aralığını döner.
func (v *Viewing) Window() (time.Time, time.Time) {
	return v.ScheduledAt, v.ScheduledAt.Add(time.Duration(v.Duration) * time.Minute)
}

// BeforeSave EndsAt alanını süre ile senkron tutar.
func (v *Viewing) BeforeSave(tx *gorm.DB) error {
	_, v.EndsAt = v.Window()
	return nil
}
