// Package store persists the schedule record. The record lives in a small
// reserved region of a larger image, laid out like an EEPROM page.
package store

import (
	"bytes"
	"errors"

	"github.com/sweeney/okay-to-wake/internal/schedule"
)

var (
	ErrRead  = errors.New("read record")
	ErrWrite = errors.New("write record")
)

// RecordStore reads and writes the persisted schedule record.
type RecordStore interface {
	// ReadRecord returns the schedule.RecordSize bytes of the record.
	// An erased or missing region reads as 0xFF bytes, which fail the checksum.
	ReadRecord() ([]byte, error)

	// WriteRecord stores a record of schedule.RecordSize bytes.
	WriteRecord(record []byte) error
}

// erased returns a region as it looks after an erase cycle.
func erased() []byte {
	return bytes.Repeat([]byte{0xFF}, schedule.RegionSize)
}
