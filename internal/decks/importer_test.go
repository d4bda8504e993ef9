package decks

import (
	"testing"

	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
)

func TestParseDeckList(t *testing.T) {
	text := `// Commander staples
1 Sol Ring (C21)
# ramp
2 Arcane Signet

3 Llanowar Elves
`
	lines, err := ParseDeckList(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	if lines[0].Name != "Sol Ring" || lines[0].Quantity != 1 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[0].SetCode == nil || *lines[0].SetCode != "C21" {
		t.Fatalf("expected set code C21, got %+v", lines[0].SetCode)
	}
	if lines[1].Name != "Arcane Signet" || lines[1].SetCode != nil {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
	if lines[2].Name != "Llanowar Elves" || lines[2].Quantity != 3 {
		t.Fatalf("unexpected third line: %+v", lines[2])
	}
}

func TestParseDeckListKeepsParentheticalNames(t *testing.T) {
	lines, err := ParseDeckList("1 Borrowing 100,000 Arrows (judge promo)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// Lowercase parentheses are part of the name, not a set code.
	if lines[0].Name != "Borrowing 100,000 Arrows (judge promo)" || lines[0].SetCode != nil {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
}

func TestParseDeckListRejectsMalformedLine(t *testing.T) {
	_, err := ParseDeckList("Sol Ring x4")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseDeckListRejectsEmptyInput(t *testing.T) {
	_, err := ParseDeckList("// nothing but comments\n\n# and blanks\n")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
