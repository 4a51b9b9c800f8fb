package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"geogate/internal/filter"
	"geogate/internal/geo"
	"geogate/internal/model"
	"geogate/internal/utils"
)

// Actor roles. Authentication happens upstream; handlers pass the
// already-established identity through.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// AdminStore is the persistence contract for link management
type AdminStore interface {
	Create(ctx context.Context, link *model.Link) error
	GetByID(ctx context.Context, id uint) (*model.Link, error)
	GetByShortCode(ctx context.Context, shortCode string) (*model.Link, error)
	Update(ctx context.Context, link *model.Link) error
	List(ctx context.Context, createdBy uint, search string, showDeleted bool, offset, limit int) ([]model.Link, int64, error)
	ListAccessLogs(ctx context.Context, linkID uint, offset, limit int) ([]model.AccessLog, int64, error)
}

// BlocklistStore is the persistence contract for the address blocklist
type BlocklistStore interface {
	List(ctx context.Context) ([]model.BlockedIP, error)
	Block(ctx context.Context, entry *model.BlockedIP) error
	Unblock(ctx context.Context, ipAddress string) error
}

// Actor identifies the administrator performing an operation
type Actor struct {
	ID   uint
	Role string
}

// CreateLinkParams carries the fields of a link creation request
type CreateLinkParams struct {
	ShortCode    string // optional custom code
	Title        string
	TargetURL    string
	CenterLat    float64
	CenterLng    float64
	RadiusMeters float64
	LocationName string
	Contact      string
	ExpireAt     *time.Time
	MaxVisits    int64
}

// UpdateLinkParams carries a partial link update; nil fields are left
// unchanged
type UpdateLinkParams struct {
	Title        *string
	TargetURL    *string
	CenterLat    *float64
	CenterLng    *float64
	RadiusMeters *float64
	LocationName *string
	Contact      *string
	ExpireAt     *time.Time
	MaxVisits    *int64
	IsActive     *bool
}

// LinkStats summarizes a link's counters
type LinkStats struct {
	TotalVisits      int64   `json:"total_visits"`
	SuccessfulVisits int64   `json:"successful_visits"`
	DeniedVisits     int64   `json:"denied_visits"`
	SuccessRate      float64 `json:"success_rate"`
}

// AdminService implements the management surface around the engine:
// link CRUD, lifecycle transitions and the blocklist. It owns the
// delete-vs-ban policy; the engine only reads the resulting flags.
type AdminService struct {
	store     AdminStore
	blocklist BlocklistStore
	cache     PublicInfoCache
	bloom     *filter.BloomFilter
}

// NewAdminService creates a new admin service instance. cache and bloom
// may be nil.
func NewAdminService(store AdminStore, blocklist BlocklistStore, cache PublicInfoCache, bloom *filter.BloomFilter) *AdminService {
	return &AdminService{
		store:     store,
		blocklist: blocklist,
		cache:     cache,
		bloom:     bloom,
	}
}

// CreateLink creates a new geofenced link owned by the actor. A custom
// short code must be unused, including by soft-deleted links; generated
// codes come from the snowflake ID space with a collision retry.
func (s *AdminService) CreateLink(ctx context.Context, actor Actor, params CreateLinkParams) (*model.Link, error) {
	if err := validateTargetURL(params.TargetURL); err != nil {
		return nil, err
	}
	if !geo.ValidCoordinate(params.CenterLat, params.CenterLng) {
		return nil, ErrInvalidCoordinate
	}
	if params.RadiusMeters <= 0 {
		return nil, ErrInvalidRadius
	}

	shortCode := params.ShortCode
	if shortCode != "" {
		existing, err := s.store.GetByShortCode(ctx, shortCode)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrShortCodeTaken
		}
	} else {
		var err error
		shortCode, err = s.generateShortCode(ctx)
		if err != nil {
			return nil, err
		}
	}

	link := &model.Link{
		ShortCode:    shortCode,
		Title:        params.Title,
		TargetURL:    params.TargetURL,
		CenterLat:    params.CenterLat,
		CenterLng:    params.CenterLng,
		RadiusMeters: params.RadiusMeters,
		LocationName: params.LocationName,
		Contact:      params.Contact,
		ExpireAt:     params.ExpireAt,
		MaxVisits:    params.MaxVisits,
		CreatedBy:    actor.ID,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, link); err != nil {
		return nil, err
	}

	if s.bloom != nil {
		s.bloom.Add(shortCode)
	}
	return link, nil
}

// GetLink fetches a link for administration. Soft-deleted links are not
// found unless the caller asked for them via ListLinks.
func (s *AdminService) GetLink(ctx context.Context, actor Actor, id uint) (*model.Link, error) {
	link, err := s.ownedLink(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if link.IsDeleted {
		return nil, ErrNotFound
	}
	return link, nil
}

// ListLinks lists the actor's links; super admins see everyone's
func (s *AdminService) ListLinks(ctx context.Context, actor Actor, search string, showDeleted bool, offset, limit int) ([]model.Link, int64, error) {
	createdBy := actor.ID
	if actor.Role == RoleSuperAdmin {
		createdBy = 0
	}
	return s.store.List(ctx, createdBy, search, showDeleted, offset, limit)
}

// UpdateLink applies a partial update. Re-enabling a banned link is a
// super-admin operation and clears the ban.
func (s *AdminService) UpdateLink(ctx context.Context, actor Actor, id uint, params UpdateLinkParams) (*model.Link, error) {
	link, err := s.ownedLink(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if link.IsDeleted {
		return nil, ErrNotFound
	}

	if params.TargetURL != nil {
		if err := validateTargetURL(*params.TargetURL); err != nil {
			return nil, err
		}
		link.TargetURL = *params.TargetURL
	}
	if params.CenterLat != nil {
		link.CenterLat = *params.CenterLat
	}
	if params.CenterLng != nil {
		link.CenterLng = *params.CenterLng
	}
	if params.CenterLat != nil || params.CenterLng != nil {
		if !geo.ValidCoordinate(link.CenterLat, link.CenterLng) {
			return nil, ErrInvalidCoordinate
		}
	}
	if params.RadiusMeters != nil {
		if *params.RadiusMeters <= 0 {
			return nil, ErrInvalidRadius
		}
		link.RadiusMeters = *params.RadiusMeters
	}
	if params.Title != nil {
		link.Title = *params.Title
	}
	if params.LocationName != nil {
		link.LocationName = *params.LocationName
	}
	if params.Contact != nil {
		link.Contact = *params.Contact
	}
	if params.ExpireAt != nil {
		link.ExpireAt = params.ExpireAt
	}
	if params.MaxVisits != nil {
		link.MaxVisits = *params.MaxVisits
	}
	if params.IsActive != nil {
		if link.IsBanned && *params.IsActive {
			if actor.Role != RoleSuperAdmin {
				return nil, ErrForbidden
			}
			link.IsBanned = false
		}
		link.IsActive = *params.IsActive
	}

	if err := s.store.Update(ctx, link); err != nil {
		return nil, err
	}
	s.invalidate(ctx, link.ShortCode)
	return link, nil
}

// DeleteLink removes a link from circulation. A super admin deleting
// someone else's link bans it instead of deleting it; owners (and super
// admins on their own links) soft-delete. Both clear the active flag.
func (s *AdminService) DeleteLink(ctx context.Context, actor Actor, id uint) error {
	link, err := s.ownedLink(ctx, actor, id)
	if err != nil {
		return err
	}
	if link.IsDeleted {
		return ErrNotFound
	}

	if actor.Role == RoleSuperAdmin && link.CreatedBy != actor.ID {
		link.IsBanned = true
	} else {
		link.IsDeleted = true
	}
	link.IsActive = false

	if err := s.store.Update(ctx, link); err != nil {
		return err
	}
	s.invalidate(ctx, link.ShortCode)
	return nil
}

// RestoreLink brings a soft-deleted link back: clears the deleted flag
// and re-activates it. The banned flag is never cleared here, so a
// banned link stays inaccessible until explicitly unbanned.
func (s *AdminService) RestoreLink(ctx context.Context, actor Actor, id uint) (*model.Link, error) {
	link, err := s.ownedLink(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !link.IsDeleted {
		return nil, ErrNotDeleted
	}

	link.IsDeleted = false
	link.IsActive = true

	if err := s.store.Update(ctx, link); err != nil {
		return nil, err
	}
	s.invalidate(ctx, link.ShortCode)
	return link, nil
}

// LinkStats returns the counter summary for a link
func (s *AdminService) LinkStats(ctx context.Context, actor Actor, id uint) (*LinkStats, error) {
	link, err := s.GetLink(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	stats := &LinkStats{
		TotalVisits:      link.VisitCount,
		SuccessfulVisits: link.SuccessCount,
		DeniedVisits:     link.DeniedCount,
	}
	if link.VisitCount > 0 {
		rate := float64(link.SuccessCount) / float64(link.VisitCount) * 100
		stats.SuccessRate = float64(int64(rate*100+0.5)) / 100
	}
	return stats, nil
}

// LinkAccessLogs returns the audit trail for a link
func (s *AdminService) LinkAccessLogs(ctx context.Context, actor Actor, id uint, offset, limit int) ([]model.AccessLog, int64, error) {
	if _, err := s.GetLink(ctx, actor, id); err != nil {
		return nil, 0, err
	}
	return s.store.ListAccessLogs(ctx, id, offset, limit)
}

// ListBlockedIPs returns the full blocklist
func (s *AdminService) ListBlockedIPs(ctx context.Context) ([]model.BlockedIP, error) {
	return s.blocklist.List(ctx)
}

// BlockIP adds an address to the blocklist. Takes effect at the
// perimeter gate within one refresh interval.
func (s *AdminService) BlockIP(ctx context.Context, actor Actor, ipAddress, reason string) (*model.BlockedIP, error) {
	entry := &model.BlockedIP{
		IPAddress: ipAddress,
		Reason:    reason,
		CreatedBy: actor.ID,
	}
	if err := s.blocklist.Block(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// UnblockIP removes an address from the blocklist
func (s *AdminService) UnblockIP(ctx context.Context, ipAddress string) error {
	return s.blocklist.Unblock(ctx, ipAddress)
}

// ownedLink fetches a link and enforces ownership for non-super actors
func (s *AdminService) ownedLink(ctx context.Context, actor Actor, id uint) (*model.Link, error) {
	link, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	if actor.Role != RoleSuperAdmin && link.CreatedBy != actor.ID {
		return nil, ErrForbidden
	}
	return link, nil
}

func (s *AdminService) generateShortCode(ctx context.Context) (string, error) {
	shortCode, err := utils.GenerateShortCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate short code: %w", err)
	}

	// Collision is near impossible with snowflake IDs, retry a few
	// times anyway
	for i := 0; i < 3; i++ {
		existing, err := s.store.GetByShortCode(ctx, shortCode)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return shortCode, nil
		}
		shortCode, err = utils.GenerateShortCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
	}
	return shortCode, nil
}

func (s *AdminService) invalidate(ctx context.Context, shortCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, shortCode); err != nil {
		log.Printf("failed to invalidate public info cache for %s: %v", shortCode, err)
	}
}

func validateTargetURL(rawURL string) error {
	if rawURL == "" {
		return ErrInvalidTargetURL
	}
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return ErrInvalidTargetURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidTargetURL
	}
	if parsed.Host == "" {
		return ErrInvalidTargetURL
	}
	return nil
}
