package schedule

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Default boundaries, applied to every day by DefaultWeek.
var (
	DefaultDoze  = At(6, 15)
	DefaultWake  = At(6, 30)
	DefaultDay   = At(7, 0)
	DefaultSleep = At(18, 45)
)

const (
	// DayDataSize is the size of the seven day entries in the record.
	DayDataSize = DaysPerWeek * 4 * 2
	// RecordSize is the day data plus the 4-byte checksum.
	RecordSize = DayDataSize + 4
	// RegionSize is the reserved non-volatile region the record lives in.
	RegionSize = 64
)

// ErrChecksum is reported when a persisted record fails its checksum.
var ErrChecksum = errors.New("schedule checksum mismatch")

// Week is a Monday-first schedule plus the checksum of its day data.
type Week struct {
	Days     [DaysPerWeek]DayEntry
	Checksum uint32
}

// Seal returns a Week for days with the checksum filled in.
func Seal(days [DaysPerWeek]DayEntry) Week {
	return Week{Days: days, Checksum: Checksum(days)}
}

// DefaultWeek returns seven identical days built from the default boundaries.
func DefaultWeek() Week {
	var days [DaysPerWeek]DayEntry
	for i := range days {
		days[i] = DayEntry{
			Doze:  DefaultDoze,
			Wake:  DefaultWake,
			Day:   DefaultDay,
			Sleep: DefaultSleep,
		}
	}
	return Seal(days)
}

// Checksum is a CRC-32 (IEEE) over the raw day bytes.
func Checksum(days [DaysPerWeek]DayEntry) uint32 {
	buf := encodeDays(days)
	return crc32.ChecksumIEEE(buf[:])
}

// Verify reports whether the stored checksum matches the day data.
func (w Week) Verify() bool {
	return w.Checksum == Checksum(w.Days)
}

// Day returns the entry for a Monday-based weekday index.
// Out-of-range indexes wrap around the week.
func (w Week) Day(weekday int) DayEntry {
	weekday %= DaysPerWeek
	if weekday < 0 {
		weekday += DaysPerWeek
	}
	return w.Days[weekday]
}

func encodeDays(days [DaysPerWeek]DayEntry) [DayDataSize]byte {
	var buf [DayDataSize]byte
	i := 0
	for _, d := range days {
		for _, b := range Boundaries {
			t := d.Get(b)
			buf[i] = t.Hour
			buf[i+1] = t.Minute
			i += 2
		}
	}
	return buf
}

// Encode returns the persisted record: day data followed by the
// little-endian checksum.
func Encode(w Week) [RecordSize]byte {
	var rec [RecordSize]byte
	days := encodeDays(w.Days)
	copy(rec[:], days[:])
	binary.LittleEndian.PutUint32(rec[DayDataSize:], w.Checksum)
	return rec
}

// Load decodes a persisted record and checks it. corrupted is true when the
// record is short, its checksum does not match the day data, or a stored
// time is out of range. The caller is expected to replace a corrupted
// record with DefaultWeek.
func Load(record []byte) (w Week, corrupted bool) {
	if len(record) < RecordSize {
		return Week{}, true
	}
	i := 0
	for d := range w.Days {
		for _, b := range Boundaries {
			w.Days[d].Set(b, TimeOfDay{Hour: record[i], Minute: record[i+1]})
			i += 2
		}
	}
	w.Checksum = binary.LittleEndian.Uint32(record[DayDataSize:RecordSize])
	if !w.Verify() {
		return w, true
	}
	for _, d := range w.Days {
		if !d.Valid() {
			return w, true
		}
	}
	return w, false
}
