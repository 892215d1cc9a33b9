package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

// FileStore keeps the record in an EEPROM image file. The reserved region
// starts at Offset; bytes outside the region are left alone.
type FileStore struct {
	Path   string
	Offset int64
}

// NewFileStore returns a FileStore for the image at path.
func NewFileStore(path string, offset int64) *FileStore {
	return &FileStore{Path: path, Offset: offset}
}

// ReadRecord reads the record. A missing file or a region past the end of
// the file reads as erased.
func (s *FileStore) ReadRecord() ([]byte, error) {
	region := erased()

	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return region[:schedule.RecordSize], nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	// A short read leaves the tail of the region erased.
	if _, err := f.ReadAt(region, s.Offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return region[:schedule.RecordSize], nil
}

// WriteRecord writes the record into the region, padding the remainder of
// the region with 0xFF, and syncs the file.
func (s *FileStore) WriteRecord(record []byte) error {
	if len(record) != schedule.RecordSize {
		return fmt.Errorf("%w: record is %d bytes, want %d", ErrWrite, len(record), schedule.RecordSize)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	region := erased()
	copy(region, record)
	if _, err = f.WriteAt(region, s.Offset); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
