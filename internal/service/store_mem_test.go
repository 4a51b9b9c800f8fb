package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"geogate/internal/model"
)

// memStore is an in-memory LinkStore/AdminStore with the same atomicity
// contract as the real repository: RecordAccess applies both counter
// increments and the log append under one lock.
type memStore struct {
	mu     sync.Mutex
	nextID uint
	links  map[uint]*model.Link
	logs   []model.AccessLog

	recordErr error // injected RecordAccess failure
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, links: make(map[uint]*model.Link)}
}

func (s *memStore) add(link model.Link) *model.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	link.ID = s.nextID
	s.nextID++
	stored := link
	s.links[stored.ID] = &stored
	return &stored
}

func (s *memStore) Create(ctx context.Context, link *model.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.ShortCode == link.ShortCode {
			return errors.New("duplicate short code")
		}
	}
	link.ID = s.nextID
	s.nextID++
	stored := *link
	s.links[link.ID] = &stored
	return nil
}

func (s *memStore) GetByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.ShortCode == shortCode {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetByID(ctx context.Context, id uint) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *memStore) Update(ctx context.Context, link *model.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.ID]; !ok {
		return errors.New("link not found")
	}
	cp := *link
	s.links[link.ID] = &cp
	return nil
}

func (s *memStore) List(ctx context.Context, createdBy uint, search string, showDeleted bool, offset, limit int) ([]model.Link, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Link
	for _, l := range s.links {
		if l.IsDeleted != showDeleted {
			continue
		}
		if createdBy != 0 && l.CreatedBy != createdBy {
			continue
		}
		if search != "" && !strings.Contains(l.ShortCode, search) &&
			!strings.Contains(l.LocationName, search) && !strings.Contains(l.TargetURL, search) {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (s *memStore) RecordAccess(ctx context.Context, linkID uint, granted bool, entry *model.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	l, ok := s.links[linkID]
	if !ok || l.IsDeleted {
		return errors.New("link row no longer exists")
	}
	l.VisitCount++
	if granted {
		l.SuccessCount++
	} else {
		l.DeniedCount++
	}
	entry.LinkID = linkID
	entry.AccessGranted = granted
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *memStore) ListAccessLogs(ctx context.Context, linkID uint, offset, limit int) ([]model.AccessLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AccessLog
	for _, e := range s.logs {
		if e.LinkID == linkID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStore) GetAllShortCodes(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var codes []string
	for _, l := range s.links {
		codes = append(codes, l.ShortCode)
	}
	return codes, nil
}

func (s *memStore) logCount(linkID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.logs {
		if e.LinkID == linkID {
			n++
		}
	}
	return n
}

// memBlocklist is an in-memory BlocklistStore
type memBlocklist struct {
	mu      sync.Mutex
	nextID  uint
	entries map[string]model.BlockedIP
}

func newMemBlocklist() *memBlocklist {
	return &memBlocklist{nextID: 1, entries: make(map[string]model.BlockedIP)}
}

func (s *memBlocklist) List(ctx context.Context) ([]model.BlockedIP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.BlockedIP
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *memBlocklist) Block(ctx context.Context, entry *model.BlockedIP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.IPAddress]; ok {
		return errors.New("address already blocked")
	}
	entry.ID = s.nextID
	s.nextID++
	s.entries[entry.IPAddress] = *entry
	return nil
}

func (s *memBlocklist) Unblock(ctx context.Context, ipAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[ipAddress]; !ok {
		return errors.New("address not blocked")
	}
	delete(s.entries, ipAddress)
	return nil
}
