package domain

import (
	"regexp"
	"strings"
)

// Mode is a coarse topic hint that selects additional system instructions.
// The set is closed; anything else normalizes to ModeGeneral.
type Mode string

const (
	ModeGeneral  Mode = "GENERAL"
	ModePlanning Mode = "PLANNING"
	ModeHealth   Mode = "HEALTH"
	ModeMoney    Mode = "MONEY"
)

// Known reports whether m is a member of the closed mode set.
func (m Mode) Known() bool {
	switch m {
	case ModeGeneral, ModePlanning, ModeHealth, ModeMoney:
		return true
	}
	return false
}

// Normalize maps unrecognized or empty modes to ModeGeneral.
func (m Mode) Normalize() Mode {
	if !m.Known() {
		return ModeGeneral
	}
	return m
}

// Wire format: "[MODE: <IDENTIFIER>] rest of text". The keyword is
// case-insensitive, the identifier is uppercase letters only, and
// whitespace around the brackets and colon is tolerated.
var modeTagRe = regexp.MustCompile(`^\s*\[(?i:mode)\s*:\s*([A-Z]+)\s*\]`)

// ParseModeTag extracts an optional leading mode tag from raw user input.
// It returns the tagged mode (which may be outside the closed set), the
// input with the tag stripped and trimmed, and whether a tag was present.
// A tag with an unknown identifier is still stripped from the text.
func ParseModeTag(input string) (Mode, string, bool) {
	loc := modeTagRe.FindStringSubmatchIndex(input)
	if loc == nil {
		return "", strings.TrimSpace(input), false
	}
	mode := Mode(input[loc[2]:loc[3]])
	cleaned := strings.TrimSpace(input[loc[1]:])
	return mode, cleaned, true
}
