package models

import "time"

// Branch is a tenant's physical property. A tenant's default branch is
// assigned to reservations created by the ingestion pipeline, and its
// AutoSendInvitation flag gates immediate guest notification.
type Branch struct {
	ID        string    `gorm:"primary_key;type:uuid;default:gen_random_uuid()" json:"id"`
	Tenant    string    `gorm:"column:tenant;type:varchar(255);index;NOT NULL" json:"tenant"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;DEFAULT:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`

	Name               string `gorm:"column:name;type:varchar(255)" json:"name"`
	IsDefault          bool   `gorm:"column:is_default;type:boolean" json:"isDefault"`
	AutoSendInvitation bool   `gorm:"column:auto_send_invitation;type:boolean" json:"autoSendInvitation"`
}

func (Branch) TableName() string {
	return "branches"
}
