package gpio

import "sync"

// FakeWriter is a test double that records every color shown.
type FakeWriter struct {
	mu sync.Mutex

	// Shown holds every color passed to Show, in order.
	Shown []Color

	// Closed tracks if Close was called
	Closed bool

	// ShowError, if set, will be returned by Show()
	ShowError error
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Show records c.
func (f *FakeWriter) Show(c Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ShowError != nil {
		return f.ShowError
	}
	f.Shown = append(f.Shown, c)
	return nil
}

// Close marks the writer as closed and records the LED going dark.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	f.Shown = append(f.Shown, Off)
	return nil
}

// Last returns the most recent color, or Off if nothing was shown.
func (f *FakeWriter) Last() Color {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Shown) == 0 {
		return Off
	}
	return f.Shown[len(f.Shown)-1]
}

// Count returns the number of colors recorded.
func (f *FakeWriter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Shown)
}
