//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives the LED through the Linux GPIO character device.
type RealWriter struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealWriter requests the three channel lines on chip as outputs,
// initially off.
func NewRealWriter(chipName string, pins Pins) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	offsets := []int{pins.Red, pins.Green, pins.Blue}
	lines, err := chip.RequestLines(offsets, gpiocdev.AsOutput(0, 0, 0), gpiocdev.WithConsumer("okay-to-wake"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pins %v: %w", offsets, err)
	}

	return &RealWriter{chip: chip, lines: lines}, nil
}

// Show sets each channel line on or off.
func (w *RealWriter) Show(c Color) error {
	if err := w.lines.SetValues(levels(c)); err != nil {
		return fmt.Errorf("set LED %s: %w", c, err)
	}
	return nil
}

// Close turns the LED off and releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing so the LED stays dark through shutdown/reboot.
func (w *RealWriter) Close() error {
	var errs []error

	if w.lines != nil {
		if err := w.lines.SetValues(levels(Off)); err != nil {
			errs = append(errs, fmt.Errorf("turn LED off: %w", err))
		}
		if err := w.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pins: %w", err))
		}
		if err := w.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pins: %w", err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
