package batch

import "fmt"

// Storage is an insertion-ordered collection of batches of one kind.
// It starts empty; the first batch is created by a Factory when the first compatible entity arrives.
type Storage[B Batch] struct {
	kind       Kind
	batches    []B
	maxBatches int
}

// NewStorage creates an empty storage.
//
// Parameters:
//   - kind: the kind of batches the storage holds
//   - maxBatches: the maximum number of batches, 0 for unbounded
//
// Returns:
//   - *Storage[B]: the new storage
func NewStorage[B Batch](kind Kind, maxBatches int) *Storage[B] {
	return &Storage[B]{kind: kind, maxBatches: maxBatches}
}

// Kind returns the kind of batches the storage holds.
func (s *Storage[B]) Kind() Kind {
	return s.kind
}

// IsEmpty reports whether the storage holds no batches.
func (s *Storage[B]) IsEmpty() bool {
	return len(s.batches) == 0
}

// Count returns the number of batches, empty landing batches included.
func (s *Storage[B]) Count() int {
	return len(s.batches)
}

// Get returns the batch at index. An out-of-range index panics.
func (s *Storage[B]) Get(index int) B {
	if index < 0 || index >= len(s.batches) {
		panic(fmt.Sprintf("batch: %s storage index %d out of range [0,%d)", s.kind, index, len(s.batches)))
	}
	return s.batches[index]
}

// Array returns the batches in insertion order. The slice is owned by the storage.
func (s *Storage[B]) Array() []B {
	return s.batches
}

// ObjectCount returns the number of objects packed across all batches.
func (s *Storage[B]) ObjectCount() int {
	n := 0
	for _, b := range s.batches {
		n += b.ObjectCount()
	}
	return n
}

// Full reports whether the storage may not grow by another batch.
func (s *Storage[B]) Full() bool {
	return s.maxBatches > 0 && len(s.batches) >= s.maxBatches
}

// Reset releases every batch. Calling it on an empty storage is a no-op.
func (s *Storage[B]) Reset() {
	clear(s.batches)
	s.batches = s.batches[:0]
}

func (s *Storage[B]) push(b B) {
	s.batches = append(s.batches, b)
}
