package app

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

// Embedded status page, set by main.
var IndexHTML []byte

// ServeIndex serves the status page HTML
func ServeIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(IndexHTML); err != nil {
		log.Printf("Error writing index HTML: %v", err)
	}
}

// GetConfig returns the service configuration and the known waste types
func GetConfig(w http.ResponseWriter, r *http.Request) {
	types := make([]string, 0, len(AllWasteTypes))
	for _, wt := range AllWasteTypes {
		types = append(types, wt.String())
	}

	WriteJSON(w, map[string]interface{}{
		"wasteTypes":     types,
		"sourceType":     SourceType,
		"updateInterval": UpdateInterval.String(),
		"timezone":       Location.String(),
		"holidays":       GetBelgianHolidays(time.Now().In(Location).Year()),
	})
}

// HandleStatus reports the snapshot state and the last refresh outcome.
// Consumers should treat the schedule as unknown only when hasSnapshot is
// false; otherwise the last good data is being served even if the most
// recent refresh failed.
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	refreshAt, refreshOK, refreshErr := LastRefresh()

	status := map[string]interface{}{
		"hasSnapshot": false,
	}
	if !refreshAt.IsZero() {
		status["lastRefreshAt"] = refreshAt.Format(time.RFC3339)
		status["lastRefreshOk"] = refreshOK
		if refreshErr != "" {
			status["lastError"] = refreshErr
		}
	}

	if snap := CurrentSnapshot(); snap != nil {
		counts := make(map[string]int)
		for wt, pickups := range snap.ByType {
			counts[wt.String()] = len(pickups)
		}
		status["hasSnapshot"] = true
		status["fetchedAt"] = snap.FetchedAt.Format(time.RFC3339)
		status["today"] = snap.Today
		status["total"] = snap.Total()
		status["countsByType"] = counts
		status["skippedRows"] = len(snap.Warnings)
		if snap.Next != nil {
			status["next"] = snap.Next
		}
	}

	WriteJSON(w, status)
}

// HandleNext returns the single next upcoming pickup across all types.
// The pickup field is null when nothing is upcoming.
func HandleNext(w http.ResponseWriter, r *http.Request) {
	if CurrentSnapshot() == nil {
		http.Error(w, ErrNoSnapshot, http.StatusServiceUnavailable)
		return
	}

	response := map[string]interface{}{"pickup": nil}
	if next, ok := NextPickup(); ok {
		response["pickup"] = next
		if holiday, isHoliday := HolidayName(next.Date); isHoliday {
			response["holiday"] = holiday
		}
	}
	WriteJSON(w, response)
}

// HandleNextFor returns the next pickup date for one waste type
// URL: /api/next/{type}
func HandleNextFor(w http.ResponseWriter, r *http.Request) {
	wt, ok := wasteTypeFromPath(r.URL.Path, "/api/next/")
	if !ok {
		http.Error(w, ErrUnknownWasteType, http.StatusBadRequest)
		return
	}
	if CurrentSnapshot() == nil {
		http.Error(w, ErrNoSnapshot, http.StatusServiceUnavailable)
		return
	}

	response := map[string]interface{}{
		"type": wt.String(),
		"date": nil,
	}
	if date, found := NextPickupFor(wt); found {
		response["date"] = date
	}
	WriteJSON(w, response)
}

// HandleUpcomingFor returns all upcoming pickup dates for one waste type
// URL: /api/upcoming/{type}
func HandleUpcomingFor(w http.ResponseWriter, r *http.Request) {
	wt, ok := wasteTypeFromPath(r.URL.Path, "/api/upcoming/")
	if !ok {
		http.Error(w, ErrUnknownWasteType, http.StatusBadRequest)
		return
	}
	if CurrentSnapshot() == nil {
		http.Error(w, ErrNoSnapshot, http.StatusServiceUnavailable)
		return
	}

	dates := UpcomingFor(wt)
	if dates == nil {
		dates = []string{}
	}
	WriteJSON(w, map[string]interface{}{
		"type":  wt.String(),
		"dates": dates,
	})
}

// HandlePickups returns every upcoming pickup ordered by date.
func HandlePickups(w http.ResponseWriter, r *http.Request) {
	if CurrentSnapshot() == nil {
		http.Error(w, ErrNoSnapshot, http.StatusServiceUnavailable)
		return
	}

	pickups := UpcomingPickups()
	if pickups == nil {
		pickups = []Pickup{}
	}
	WriteJSON(w, map[string]interface{}{"pickups": pickups})
}

// HandleRefresh triggers a refresh outside the regular schedule
// (protected with Basic Auth).
func HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := Refresh(); err != nil {
		log.Printf("Manual refresh failed: %v", err)
		http.Error(w, ErrRefreshFailed+": "+err.Error(), http.StatusBadGateway)
		return
	}

	response := map[string]interface{}{"status": "ok"}
	if snap := CurrentSnapshot(); snap != nil {
		response["total"] = snap.Total()
	}
	WriteJSON(w, response)
}

// HandleUpload replaces the inline CSV content and refreshes from it
// (protected with Basic Auth). Only available when the service was set up
// with the upload source. The previous content is restored when the new
// content does not parse, so a bad upload cannot wipe the schedule.
func HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if SourceType != SourceTypeUpload {
		http.Error(w, ErrUploadDisabled, http.StatusForbidden)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, ErrEmptyUpload, http.StatusBadRequest)
		return
	}

	previous := UploadedCSV()
	SetUploadedCSV(req.Content)

	if err := Refresh(); err != nil {
		SetUploadedCSV(previous)
		http.Error(w, ErrInvalidFormat+": "+err.Error(), http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{"status": "ok"}
	if snap := CurrentSnapshot(); snap != nil {
		response["total"] = snap.Total()
	}
	WriteJSON(w, response)
}

// HandleDownload exports upcoming pickups in ICS, CSV or JSON format
// Query params: format=ics|csv|json, types=Huisvuil,PMD (optional filter)
func HandleDownload(w http.ResponseWriter, r *http.Request) {
	if CurrentSnapshot() == nil {
		http.Error(w, ErrNoSnapshot, http.StatusServiceUnavailable)
		return
	}

	pickups := filterByTypes(UpcomingPickups(), r.URL.Query().Get("types"))

	switch r.URL.Query().Get("format") {
	case "ics":
		GenerateICS(w, r, pickups)
	case "csv":
		GenerateCSV(w, pickups)
	case "json":
		GenerateJSON(w, pickups)
	default:
		http.Error(w, ErrInvalidFormat, http.StatusBadRequest)
	}
}

// HandleSubscribe serves the upcoming pickups as an ICS subscription feed
// Query param: types=Huisvuil,PMD (optional filter)
func HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if CurrentSnapshot() == nil {
		http.Error(w, ErrNoSnapshot, http.StatusServiceUnavailable)
		return
	}

	pickups := filterByTypes(UpcomingPickups(), r.URL.Query().Get("types"))
	GenerateSubscriptionICS(w, pickups)
}

// wasteTypeFromPath extracts and parses the waste type from a URL path.
func wasteTypeFromPath(path, prefix string) (WasteType, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || raw == path {
		return 0, false
	}
	return ParseWasteType(raw)
}

// filterByTypes keeps only pickups whose type is in the comma-separated
// filter. An empty filter keeps everything; unknown names are ignored.
func filterByTypes(pickups []Pickup, filter string) []Pickup {
	if filter == "" {
		return pickups
	}

	wanted := make(map[WasteType]bool)
	for _, name := range strings.Split(filter, ",") {
		if wt, ok := ParseWasteType(name); ok {
			wanted[wt] = true
		}
	}
	if len(wanted) == 0 {
		return pickups
	}

	var filtered []Pickup
	for _, p := range pickups {
		if wanted[p.Type] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
