package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openstay/reservstack/internal/utils"
)

// Reservation is a canonical reservation record created from an OTA
// notification email. The booking code is the global dedup key.
type Reservation struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Tenant    string    `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`
	BranchID  *string   `gorm:"column:branch_id;type:uuid;index" json:"branchId"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`

	BookingCode string `gorm:"column:booking_code;type:varchar(100);uniqueIndex;not null" json:"bookingCode"`

	GuestName  string `gorm:"column:guest_name;type:varchar(255);not null" json:"guestName"`
	GuestEmail string `gorm:"column:guest_email;type:varchar(255)" json:"guestEmail"`
	GuestPhone string `gorm:"column:guest_phone;type:varchar(100)" json:"guestPhone"`

	CheckInDate  time.Time `gorm:"column:check_in_date;type:date;index;not null" json:"checkInDate"`
	CheckOutDate time.Time `gorm:"column:check_out_date;type:date;not null" json:"checkOutDate"`

	Amount   float64 `gorm:"column:amount;not null" json:"amount"`
	Currency string  `gorm:"column:currency;type:varchar(3);not null" json:"currency"`

	Nights      *int    `gorm:"column:nights" json:"nights"`
	Rooms       *int    `gorm:"column:rooms" json:"rooms"`
	Guests      *int    `gorm:"column:guests" json:"guests"`
	Nationality string  `gorm:"column:nationality;type:varchar(100)" json:"nationality"`
	Commission  *float64 `gorm:"column:commission" json:"commission"`

	SourceMessageID  string     `gorm:"column:source_message_id;type:varchar(255)" json:"sourceMessageId"`
	InvitationSentAt *time.Time `gorm:"column:invitation_sent_at;type:timestamp" json:"invitationSentAt"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = utils.Now()
	return nil
}
