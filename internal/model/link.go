package model

import (
	"time"
)

// Link represents a geofenced short link record
type Link struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ShortCode string `gorm:"uniqueIndex;type:varchar(20);not null" json:"short_code"`
	Title     string `gorm:"type:varchar(100)" json:"title,omitempty"`
	TargetURL string `gorm:"type:varchar(500);not null" json:"target_url"`

	// Geofence: center coordinate plus admission radius
	CenterLat    float64 `gorm:"type:numeric(10,8);not null" json:"center_lat"`
	CenterLng    float64 `gorm:"type:numeric(11,8);not null" json:"center_lng"`
	RadiusMeters float64 `gorm:"not null" json:"radius_meters"`
	LocationName string  `gorm:"type:varchar(255)" json:"location_name,omitempty"`

	// Contact shown to visitors denied by the geofence
	Contact string `gorm:"type:varchar(100)" json:"contact,omitempty"`

	// Access constraints; zero/nil means unlimited
	ExpireAt  *time.Time `gorm:"index" json:"expire_at,omitempty"`
	MaxVisits int64      `gorm:"default:0" json:"max_visits"`

	// Lifecycle flags. Deleted takes precedence over everything for
	// existence semantics; banned survives restore.
	CreatedBy uint `gorm:"index;not null" json:"created_by"`
	IsActive  bool `gorm:"default:true;index;not null" json:"is_active"`
	IsBanned  bool `gorm:"default:false;index;not null" json:"is_banned"`
	IsDeleted bool `gorm:"default:false;index;not null" json:"is_deleted"`

	// Counters, mutated only by the access recorder.
	// Invariant: SuccessCount + DeniedCount == VisitCount.
	VisitCount   int64 `gorm:"default:0;not null" json:"visit_count"`
	SuccessCount int64 `gorm:"default:0;not null" json:"success_count"`
	DeniedCount  int64 `gorm:"default:0;not null" json:"denied_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Link
func (Link) TableName() string {
	return "links"
}

// IsExpired reports whether the link's expiry timestamp has passed at now
func (l *Link) IsExpired(now time.Time) bool {
	if l.ExpireAt == nil {
		return false
	}
	return now.After(*l.ExpireAt)
}

// VisitCapReached reports whether the visit cap is set and exhausted
func (l *Link) VisitCapReached() bool {
	return l.MaxVisits > 0 && l.VisitCount >= l.MaxVisits
}

// AccessLog is an append-only audit record of one verification event
type AccessLog struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	LinkID uint `gorm:"index;not null" json:"link_id"`

	VisitorLat     *float64 `gorm:"type:numeric(10,8)" json:"visitor_lat,omitempty"`
	VisitorLng     *float64 `gorm:"type:numeric(11,8)" json:"visitor_lng,omitempty"`
	DistanceMeters *float64 `gorm:"type:numeric(10,2)" json:"distance_meters,omitempty"`

	AccessGranted bool `gorm:"not null" json:"access_granted"`

	UserAgent string `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
	IPAddress string `gorm:"type:varchar(45)" json:"ip_address,omitempty"`

	AccessedAt time.Time `gorm:"autoCreateTime;index" json:"accessed_at"`
}

// TableName specifies the table name for AccessLog
func (AccessLog) TableName() string {
	return "access_logs"
}
