package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"geogate/internal/filter"
	"geogate/internal/geo"
	"geogate/internal/model"
)

// LinkStore is the persistence contract the verification engine
// consumes. RecordAccess must apply the counter increments and the
// audit append as one atomic unit.
type LinkStore interface {
	GetByShortCode(ctx context.Context, shortCode string) (*model.Link, error)
	RecordAccess(ctx context.Context, linkID uint, granted bool, entry *model.AccessLog) error
	GetAllShortCodes(ctx context.Context) ([]string, error)
}

// PublicInfoCache caches serialized public link info keyed by short
// code. A nil cache disables caching.
type PublicInfoCache interface {
	Get(ctx context.Context, shortCode string) (string, error)
	Set(ctx context.Context, shortCode, payload string) error
	Delete(ctx context.Context, shortCode string) error
}

// RequestMeta is the client metadata attached to an access log entry
type RequestMeta struct {
	UserAgent string
	IPAddress string
}

// VerificationResult is the externally visible outcome of one
// verification event. TargetURL is set iff the visit was allowed;
// Message and Contact are set iff it was denied.
type VerificationResult struct {
	Allowed        bool    `json:"allowed"`
	TargetURL      string  `json:"target_url,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
	RadiusMeters   float64 `json:"radius_meters"`
	Message        string  `json:"message,omitempty"`
	Contact        string  `json:"contact,omitempty"`
	Title          string  `json:"title,omitempty"`
}

// PublicLinkInfo is the side-effect-free public view of a link
type PublicLinkInfo struct {
	ShortCode    string `json:"short_code"`
	Title        string `json:"title,omitempty"`
	IsActive     bool   `json:"is_active"`
	LocationName string `json:"location_name,omitempty"`
}

// DeniedMessage is shown to visitors rejected by the geofence
const DeniedMessage = "You are outside the allowed area for this link"

// LinkService runs the access decision: state resolution, geofence
// verification and event recording.
type LinkService struct {
	store LinkStore
	cache PublicInfoCache
	bloom *filter.BloomFilter
	now   func() time.Time
}

// NewLinkService creates a new link service instance. cache and bloom
// may be nil.
func NewLinkService(store LinkStore, cache PublicInfoCache, bloom *filter.BloomFilter) *LinkService {
	return &LinkService{
		store: store,
		cache: cache,
		bloom: bloom,
		now:   time.Now,
	}
}

// Verify resolves a short code, checks the visitor's coordinate against
// the link's geofence and records the outcome. Rejections before the
// geofence decision (not found, disabled, expired, capped, bad input)
// produce no counter increment and no log entry. If the record cannot
// be committed the verdict is withheld and the error surfaced.
func (s *LinkService) Verify(ctx context.Context, shortCode string, lat, lng float64, meta RequestMeta) (*VerificationResult, error) {
	if !geo.ValidCoordinate(lat, lng) {
		return nil, ErrInvalidCoordinate
	}

	// Bloom filter rejects codes that never existed without a store hit
	if s.bloom != nil && !s.bloom.Test(shortCode) {
		return nil, ErrNotFound
	}

	link, err := s.store.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}

	if state := ResolveLinkState(link, s.now()); state != StateAdmissible {
		return nil, stateError(state)
	}

	allowed, distance := geo.WithinRadius(lat, lng, link.CenterLat, link.CenterLng, link.RadiusMeters)
	rounded := geo.Round2(distance)

	entry := &model.AccessLog{
		VisitorLat:     &lat,
		VisitorLng:     &lng,
		DistanceMeters: &rounded,
		UserAgent:      meta.UserAgent,
		IPAddress:      meta.IPAddress,
	}
	if err := s.store.RecordAccess(ctx, link.ID, allowed, entry); err != nil {
		return nil, fmt.Errorf("verification not recorded: %w", err)
	}

	result := &VerificationResult{
		Allowed:        allowed,
		DistanceMeters: rounded,
		RadiusMeters:   link.RadiusMeters,
		Title:          link.Title,
	}
	if allowed {
		result.TargetURL = link.TargetURL
	} else {
		result.Message = DeniedMessage
		result.Contact = link.Contact
	}
	return result, nil
}

// PublicInfo returns the public view of a link without touching its
// counters or logs. Deleted links are reported as not found.
func (s *LinkService) PublicInfo(ctx context.Context, shortCode string) (*PublicLinkInfo, error) {
	if s.cache != nil {
		if payload, err := s.cache.Get(ctx, shortCode); err != nil {
			log.Printf("public info cache read failed: %v", err)
		} else if payload != "" {
			var info PublicLinkInfo
			if err := json.Unmarshal([]byte(payload), &info); err == nil {
				return &info, nil
			}
		}
	}

	if s.bloom != nil && !s.bloom.Test(shortCode) {
		return nil, ErrNotFound
	}

	link, err := s.store.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if link == nil || link.IsDeleted {
		return nil, ErrNotFound
	}

	info := &PublicLinkInfo{
		ShortCode:    link.ShortCode,
		Title:        link.Title,
		IsActive:     link.IsActive,
		LocationName: link.LocationName,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(info); err == nil {
			if err := s.cache.Set(ctx, shortCode, string(payload)); err != nil {
				log.Printf("public info cache write failed: %v", err)
			}
		}
	}
	return info, nil
}

// WarmBloomFilter loads every existing short code into the bloom filter
func (s *LinkService) WarmBloomFilter(ctx context.Context) error {
	if s.bloom == nil {
		return nil
	}
	shortCodes, err := s.store.GetAllShortCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm bloom filter: %w", err)
	}
	s.bloom.AddBatch(shortCodes)
	log.Printf("bloom filter warmed with %d short codes", len(shortCodes))
	return nil
}
