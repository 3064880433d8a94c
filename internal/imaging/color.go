package imaging

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var namedColors = map[string]color.NRGBA{
	"black": {0, 0, 0, 255},
	"white": {255, 255, 255, 255},
	"red":   {255, 0, 0, 255},
}

// ParseColor parses a color specification as used in configuration files.
//
// Accepted forms:
//   - "#RGB" and "#RRGGBB" (opaque)
//   - "#RRGGBBAA" (straight alpha)
//   - "black", "white", "red"
//
// The leading '#' is optional and hex digits are case-insensitive.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.ToLower(strings.TrimSpace(s))
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if c, ok := namedColors[hex]; ok {
		return c, nil
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	alpha := uint8(255)
	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = uint8(a)
		hex = hex[:7]
	}
	if len(hex) != 4 && len(hex) != 7 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color length: %q", s)
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// MustParseColor is ParseColor for compile-time constants.
func MustParseColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ColorHex formats a color as "#RRGGBB" (alpha excluded).
func ColorHex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02X%02X%02X", n.R, n.G, n.B)
}
