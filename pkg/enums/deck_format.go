package enums

import (
	"fmt"
	"strings"
)

// DeckFormat names the constructed format a template targets.
type DeckFormat string

const (
	DeckFormatCommander DeckFormat = "commander"
	DeckFormatModern    DeckFormat = "modern"
	DeckFormatStandard  DeckFormat = "standard"
	DeckFormatPioneer   DeckFormat = "pioneer"
	DeckFormatLegacy    DeckFormat = "legacy"
	DeckFormatPauper    DeckFormat = "pauper"
	DeckFormatCasual    DeckFormat = "casual"
)

func (f DeckFormat) String() string {
	return string(f)
}

// ParseDeckFormat validates a raw format value.
func ParseDeckFormat(value string) (DeckFormat, error) {
	switch DeckFormat(strings.ToLower(value)) {
	case DeckFormatCommander, DeckFormatModern, DeckFormatStandard,
		DeckFormatPioneer, DeckFormatLegacy, DeckFormatPauper, DeckFormatCasual:
		return DeckFormat(strings.ToLower(value)), nil
	}
	return "", fmt.Errorf("invalid deck format %q", value)
}
