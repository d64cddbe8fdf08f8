package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ward-status-backend/internal/model"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	floorRe = regexp.MustCompile(`(?i)(\d+)\s*(?:P|piso)?\s*$`)
)

// BedCode holds the structured location parsed from a bed code.
type BedCode struct {
	Area  string
	Floor int
	Room  string
	Label string
}

// Bed returns an unsaved bed at this location.
func (c BedCode) Bed() model.Bed {
	return model.Bed{Floor: c.Floor, Area: c.Area, Room: c.Room, BedLabel: c.Label}
}

// ParseBedCode extracts area, floor, room and bed label from a code such as
// "UCI 2-201-A", "Pediatría#3-305-B" or "Urgencias 1P-12-2".
// Room and label are the last two dash-separated parts, so areas may contain dashes.
func ParseBedCode(raw string) (BedCode, error) {
	// "#" separates like a space
	s := strings.ReplaceAll(strings.TrimSpace(raw), "#", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return BedCode{}, fmt.Errorf("unable to parse bed code %q: want <area> <floor>-<room>-<bed>", raw)
	}
	n := len(parts)
	label := strings.TrimSpace(parts[n-1])
	room := strings.TrimSpace(parts[n-2])
	head := strings.TrimSpace(strings.Join(parts[:n-2], "-"))
	if room == "" || label == "" {
		return BedCode{}, fmt.Errorf("unable to parse room or bed from code: %q", raw)
	}

	loc := floorRe.FindStringSubmatchIndex(head)
	if loc == nil {
		return BedCode{}, fmt.Errorf("unable to parse floor from code: %q", raw)
	}
	floor, err := strconv.Atoi(head[loc[2]:loc[3]])
	if err != nil {
		return BedCode{}, fmt.Errorf("unable to parse floor from code %q: %w", raw, err)
	}

	area := strings.TrimSpace(head[:loc[0]])
	if area == "" {
		return BedCode{}, fmt.Errorf("unable to parse area from code: %q", raw)
	}

	return BedCode{Area: area, Floor: floor, Room: room, Label: strings.ToUpper(label)}, nil
}

// ParseBedCodes parses every code, skipping and reporting the ones that fail.
func ParseBedCodes(raws []string) ([]model.Bed, []error) {
	var (
		out  []model.Bed
		errs []error
	)
	for _, raw := range raws {
		code, err := ParseBedCode(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, code.Bed())
	}
	return out, errs
}
