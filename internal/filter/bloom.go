package filter

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter holds every short code ever issued, including soft-deleted
// ones, so a negative Test means the code never existed and the store
// lookup can be skipped entirely. Deletion is invisible here; lifecycle
// interpretation happens after the store lookup.
type BloomFilter struct {
	filter *bloom.BloomFilter
	mu     sync.RWMutex
}

// NewBloomFilter creates a filter sized for the given capacity and
// false positive rate
func NewBloomFilter(capacity uint, fpRate float64) *BloomFilter {
	return &BloomFilter{
		filter: bloom.NewWithEstimates(capacity, fpRate),
	}
}

// Add registers a newly issued short code
func (bf *BloomFilter) Add(shortCode string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.filter.AddString(shortCode)
}

// Test reports whether the short code may have been issued. False means
// definitely not; true may be a false positive.
func (bf *BloomFilter) Test(shortCode string) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.TestString(shortCode)
}

// AddBatch registers many short codes under one lock, used at warm-up
func (bf *BloomFilter) AddBatch(shortCodes []string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	for _, code := range shortCodes {
		bf.filter.AddString(code)
	}
}

// Clear empties the filter
func (bf *BloomFilter) Clear() {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.filter.ClearAll()
}
