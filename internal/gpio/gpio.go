// Package gpio drives the RGB status LED with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"

	"github.com/sweeney/okay-to-wake/internal/logic"
)

// Writer shows a color on the LED.
type Writer interface {
	// Show lights the LED with c. Showing Off turns it dark.
	Show(c Color) error

	// Close turns the LED off and releases GPIO resources.
	Close() error
}

// Color is a 24-bit RGB value.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color from a 0xRRGGBB value.
func RGB(v uint32) Color {
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette.
var (
	Off   = RGB(0x000000)
	Red   = RGB(0xFF0000)
	Green = RGB(0x00FF00)
	Blue  = RGB(0x0000FF)
	// Boot is shown from startup until the first classification.
	Boot = RGB(0x525252)
)

// ColorFor maps a lighting state to the LED color. Day turns the LED off,
// as does anything unclassifiable.
func ColorFor(s logic.State) Color {
	switch s {
	case logic.StateDoze:
		return Blue
	case logic.StateWake:
		return Green
	case logic.StateSleep:
		return Red
	default:
		return Off
	}
}

// Default line offsets (BCM numbering).
const (
	PinRed   = 17
	PinGreen = 27
	PinBlue  = 22
)

// DefaultChip is the GPIO character device the LED is wired to.
const DefaultChip = "gpiochip0"

// Pins names the output lines for each channel.
type Pins struct {
	Red, Green, Blue int
}

// levels returns the line values for c: a channel is lit when its component
// is non-zero.
func levels(c Color) []int {
	on := func(v uint8) int {
		if v != 0 {
			return 1
		}
		return 0
	}
	return []int{on(c.R), on(c.G), on(c.B)}
}
