package decks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
)

// deckLineRe matches "3 Sol Ring (C21)" style lines; the set code is optional.
var deckLineRe = regexp.MustCompile(`^\s*(\d+)\s+(.+?)(?:\s+\(([A-Z0-9]+)\))?\s*$`)

// ImportedLine is one parsed row of an external deck list.
type ImportedLine struct {
	Name     string
	Quantity int
	SetCode  *string
}

// ParseDeckList parses Archidekt-compatible line-based text. Comment lines
// ("//" or "#") and blank lines are skipped.
func ParseDeckList(text string) ([]ImportedLine, error) {
	var lines []ImportedLine
	for number, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		match := deckLineRe.FindStringSubmatch(raw)
		if match == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("line %d is not a valid deck list entry: %q", number+1, trimmed))
		}

		qty, err := strconv.Atoi(match[1])
		if err != nil || qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("line %d has an invalid quantity: %q", number+1, trimmed))
		}

		line := ImportedLine{Name: match[2], Quantity: qty}
		if match[3] != "" {
			set := match[3]
			line.SetCode = &set
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deck list contains no card lines")
	}
	return lines, nil
}
