package store

import (
	"sync"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// FakeStore is an in-memory RecordStore for tests.
type FakeStore struct {
	mu sync.Mutex

	// Region is the reserved region contents.
	Region []byte

	// Reads and Writes count calls that reached the region.
	Reads  int
	Writes int

	// ReadError and WriteError, if set, are returned instead.
	ReadError  error
	WriteError error

	// Corrupt, if set, is applied to the region after every successful write.
	Corrupt func(region []byte)
}

// NewFakeStore returns an erased FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{Region: erased()}
}

// NewFakeStoreWith returns a FakeStore holding the record for w.
func NewFakeStoreWith(w schedule.Week) *FakeStore {
	f := NewFakeStore()
	rec := schedule.Encode(w)
	copy(f.Region, rec[:])
	return f
}

// ReadRecord returns a copy of the record bytes.
func (f *FakeStore) ReadRecord() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	f.Reads++
	out := make([]byte, schedule.RecordSize)
	copy(out, f.Region)
	return out, nil
}

// WriteRecord stores a copy of record.
func (f *FakeStore) WriteRecord(record []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes++
	copy(f.Region, record)
	if f.Corrupt != nil {
		f.Corrupt(f.Region)
	}
	return nil
}

// WriteCount returns the number of successful writes.
func (f *FakeStore) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Writes
}
