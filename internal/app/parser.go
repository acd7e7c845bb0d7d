package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Parse errors
var (
	ErrSourceUnreachable = errors.New("csv source unreachable")
	ErrEmptyContent      = errors.New("csv content has no data rows")
	ErrMalformedHeader   = errors.New("csv header does not match expected columns")
)

// expectedColumns is the header of the Limburg.net export.
var expectedColumns = [4]string{"Datum", "Ophaling", "Verwijderd", "Reden"}

// dateLayouts are tried in order for each Datum value.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// candidateDelimiters are tried in order against the header line.
var candidateDelimiters = []rune{';', ','}

// DetectDelimiter inspects the header line and returns the delimiter that
// splits it into the four expected columns. Column comparison is
// case-insensitive.
func DetectDelimiter(header string) (rune, error) {
	header = strings.TrimPrefix(strings.TrimRight(header, "\r\n"), "\ufeff")
	for _, delim := range candidateDelimiters {
		fields := strings.Split(header, string(delim))
		if len(fields) != len(expectedColumns) {
			continue
		}
		match := true
		for i, want := range expectedColumns {
			if !strings.EqualFold(strings.TrimSpace(fields[i]), want) {
				match = false
				break
			}
		}
		if match {
			return delim, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrMalformedHeader, header)
}

// parseDate parses a Datum value, trying ISO first, then DD/MM/YYYY and
// DD-MM-YYYY. The returned time is midnight UTC of the calendar date.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// ParseSchedule converts raw CSV content into a Snapshot relative to the
// given moment. Rows with unparseable dates or unknown waste types are
// skipped and reported as warnings, never as errors. A snapshot with no
// surviving rows is valid and means "no known upcoming pickups".
func ParseSchedule(content string, now time.Time) (*Snapshot, error) {
	content = strings.TrimPrefix(content, "\ufeff")

	headerLine, _, _ := strings.Cut(content, "\n")
	delim, err := DetectDelimiter(headerLine)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	// Skip the header, already validated
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var pickups []Pickup
	var warnings []ParseWarning
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, ParseWarning{Line: line, Message: err.Error()})
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 2 {
			warnings = append(warnings, ParseWarning{Line: line, Message: "row has fewer than 2 columns"})
			continue
		}

		date, err := parseDate(row[0])
		if err != nil {
			warnings = append(warnings, ParseWarning{Line: line, Message: err.Error()})
			continue
		}

		wt, ok := ParseWasteType(row[1])
		if !ok {
			warnings = append(warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("unknown waste type %q", strings.TrimSpace(row[1])),
			})
			continue
		}

		// Strictly future: today's pickups are treated as already collected
		if !date.After(today) {
			continue
		}

		pickup := Pickup{Date: date.Format(DateLayout), Type: wt}
		if len(row) > 2 {
			pickup.Removed = strings.TrimSpace(row[2])
		}
		if len(row) > 3 {
			pickup.Reason = strings.TrimSpace(row[3])
		}
		pickups = append(pickups, pickup)
	}

	snap := assembleSnapshot(pickups, now, today)
	snap.Warnings = warnings
	return snap, nil
}

// assembleSnapshot groups pickups by type, sorts each partition ascending
// and computes the overall next pickup. Pickups dated on or before today
// are dropped, so re-assembling a cached snapshot re-applies the
// future-only filter.
func assembleSnapshot(pickups []Pickup, fetchedAt, today time.Time) *Snapshot {
	cutoff := today.Format(DateLayout)
	byType := make(map[WasteType][]Pickup)
	for _, p := range pickups {
		if p.Date <= cutoff {
			continue
		}
		byType[p.Type] = append(byType[p.Type], p)
	}
	for wt := range byType {
		SortPickupsByDate(byType[wt])
	}

	snap := &Snapshot{
		FetchedAt: fetchedAt,
		Today:     cutoff,
		ByType:    byType,
	}

	// Earliest date wins; on equal dates the declaration order of
	// AllWasteTypes decides, deterministically.
	for _, wt := range AllWasteTypes {
		partition := byType[wt]
		if len(partition) == 0 {
			continue
		}
		if snap.Next == nil || partition[0].Date < snap.Next.Date {
			next := partition[0]
			snap.Next = &next
		}
	}

	return snap
}

// SortPickupsByDate sorts pickups ascending by date, keeping the existing
// order of equal dates.
func SortPickupsByDate(pickups []Pickup) {
	sort.SliceStable(pickups, func(i, j int) bool {
		return pickups[i].Date < pickups[j].Date
	})
}

// hasDataRows reports whether the content contains at least one non-empty
// line besides the header.
func hasDataRows(content string) bool {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		if i == 0 {
			continue
		}
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
