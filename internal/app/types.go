package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
)

// WasteType identifies one of the six collection categories in the
// Limburg.net CSV export. The declaration order is the tie-break order
// when two types share the same next pickup date.
type WasteType int

const (
	Huisvuil WasteType = iota
	Keukenafval
	Tuinafval
	Textiel
	PMD
	PapierKarton

	numWasteTypes
)

// wasteTypeLabels holds the display labels as they appear in the export.
var wasteTypeLabels = [numWasteTypes]string{
	Huisvuil:     "Huisvuil",
	Keukenafval:  "Keukenafval",
	Tuinafval:    "Tuinafval",
	Textiel:      "Textiel",
	PMD:          "PMD",
	PapierKarton: "Papier & karton",
}

// AllWasteTypes lists every waste type in declaration order.
var AllWasteTypes = [numWasteTypes]WasteType{
	Huisvuil, Keukenafval, Tuinafval, Textiel, PMD, PapierKarton,
}

// wasteTypeIndex maps normalized labels to their type.
var wasteTypeIndex = func() map[string]WasteType {
	index := make(map[string]WasteType, numWasteTypes)
	for _, wt := range AllWasteTypes {
		index[normalizeLabel(wasteTypeLabels[wt])] = wt
	}
	return index
}()

// normalizeLabel folds a category label for matching: accents are
// transliterated, case is ignored and everything that is not a letter or
// digit (spaces, ampersands, dashes) is dropped.
func normalizeLabel(s string) string {
	folded := strings.ToLower(unidecode.Unidecode(s))
	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseWasteType matches a raw Ophaling value against the known categories.
// Matching is case-insensitive and tolerant of accents and whitespace.
func ParseWasteType(s string) (WasteType, bool) {
	wt, ok := wasteTypeIndex[normalizeLabel(s)]
	return wt, ok
}

// String returns the display label of the waste type.
func (wt WasteType) String() string {
	if wt < 0 || wt >= numWasteTypes {
		return fmt.Sprintf("WasteType(%d)", int(wt))
	}
	return wasteTypeLabels[wt]
}

// MarshalText encodes the waste type as its display label. Snapshot maps
// keyed by WasteType rely on this for deterministic JSON output.
func (wt WasteType) MarshalText() ([]byte, error) {
	if wt < 0 || wt >= numWasteTypes {
		return nil, fmt.Errorf("unknown waste type %d", int(wt))
	}
	return []byte(wasteTypeLabels[wt]), nil
}

// UnmarshalText decodes a waste type from a label, tolerantly.
func (wt *WasteType) UnmarshalText(text []byte) error {
	parsed, ok := ParseWasteType(string(text))
	if !ok {
		return fmt.Errorf("unknown waste type %q", string(text))
	}
	*wt = parsed
	return nil
}

// Pickup represents a single scheduled waste collection.
// Date is in ISO format (YYYY-MM-DD) so lexical order equals date order.
type Pickup struct {
	Date    string    `json:"date"`
	Type    WasteType `json:"type"`
	Removed string    `json:"removed,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Cancelled reports whether the Verwijderd column marks this pickup as
// removed from the schedule.
func (p Pickup) Cancelled() bool {
	switch strings.ToLower(strings.TrimSpace(p.Removed)) {
	case "", "0", "nee", "no", "false":
		return false
	}
	return true
}

// ParseWarning records a data row that was skipped during parsing.
type ParseWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Snapshot is the complete parsed-and-filtered result of one refresh.
// Every pickup date is strictly after Today, and each per-type partition
// is sorted ascending. Snapshots are immutable once built; a refresh
// replaces the current one wholesale.
type Snapshot struct {
	FetchedAt time.Time              `json:"fetched_at"`
	Today     string                 `json:"today"`
	ByType    map[WasteType][]Pickup `json:"by_type"`
	Next      *Pickup                `json:"next,omitempty"`
	Warnings  []ParseWarning         `json:"warnings,omitempty"`
}

// Total returns the number of upcoming pickups across all types.
func (s *Snapshot) Total() int {
	total := 0
	for _, pickups := range s.ByType {
		total += len(pickups)
	}
	return total
}

// AllPickups returns every upcoming pickup ordered by date, with the
// waste type declaration order breaking date ties.
func (s *Snapshot) AllPickups() []Pickup {
	all := make([]Pickup, 0, s.Total())
	for _, wt := range AllWasteTypes {
		all = append(all, s.ByType[wt]...)
	}
	SortPickupsByDate(all)
	return all
}
