package model

import (
	"time"
)

// BlockedIP is a perimeter-gate blocklist entry, keyed by network address
type BlockedIP struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IPAddress string    `gorm:"uniqueIndex;type:varchar(45);not null" json:"ip_address"`
	Reason    string    `gorm:"type:varchar(255)" json:"reason,omitempty"`
	CreatedBy uint      `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for BlockedIP
func (BlockedIP) TableName() string {
	return "blocked_ips"
}
