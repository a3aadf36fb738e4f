package cli

import (
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/automailpro/internal/client/config"
)

// palette colours status lines.
type palette struct {
	success *color.Color
	failure *color.Color
	info    *color.Color
}

func newPalette(c config.Colors) palette {
	return palette{
		success: hexColor(c.Success, color.FgGreen),
		failure: hexColor(c.Failure, color.FgRed),
		info:    hexColor(c.Info, color.FgCyan),
	}
}

// hexColor parses "#rrggbb" into a 24-bit colour. Anything else yields the
// basic fallback attribute.
func hexColor(s string, fallback color.Attribute) *color.Color {
	rgb, ok := parseHex(s)
	if !ok {
		return color.New(fallback)
	}
	return color.RGB(rgb[0], rgb[1], rgb[2])
}

func parseHex(s string) ([3]int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return [3]int{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return [3]int{}, false
	}
	return [3]int{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, true
}
