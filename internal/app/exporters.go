package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// GenerateICS writes the upcoming pickups as a downloadable iCalendar
// file with optional reminders.
func GenerateICS(w http.ResponseWriter, r *http.Request, pickups []Pickup) {
	// Parse reminder settings
	reminder2Days := r.URL.Query().Get("reminder2Days") == "true"
	reminder1Day := r.URL.Query().Get("reminder1Day") == "true"
	reminderSameDay := r.URL.Query().Get("reminderSameDay") == "true"
	time2Days := r.URL.Query().Get("time2Days")
	time1Day := r.URL.Query().Get("time1Day")
	timeSameDay := r.URL.Query().Get("timeSameDay")

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=ophaalkalender.ics")

	// ICS header
	fmt.Fprintln(w, "BEGIN:VCALENDAR")
	fmt.Fprintln(w, "VERSION:2.0")
	fmt.Fprintf(w, "PRODID:%s\n", ICSProductID)
	fmt.Fprintln(w, "X-WR-CALNAME:Ophaalkalender Limburg.net")
	fmt.Fprintf(w, "X-WR-TIMEZONE:%s\n", ICSTimezone)
	fmt.Fprintln(w, "CALSCALE:GREGORIAN")

	for _, pickup := range pickups {
		if !writePickupEvent(w, pickup) {
			continue
		}

		eventDate, _ := time.Parse(DateLayout, pickup.Date)
		if reminder2Days && time2Days != "" {
			AddAlarm(w, eventDate, 2, time2Days, pickup.Type.String())
		}
		if reminder1Day && time1Day != "" {
			AddAlarm(w, eventDate, 1, time1Day, pickup.Type.String())
		}
		if reminderSameDay && timeSameDay != "" {
			AddAlarm(w, eventDate, 0, timeSameDay, pickup.Type.String())
		}

		fmt.Fprintln(w, "END:VEVENT")
	}

	fmt.Fprintln(w, "END:VCALENDAR")
}

// writePickupEvent writes a VEVENT for one pickup, leaving the event open
// so the caller can append alarms before END:VEVENT. Cancelled pickups get
// STATUS:CANCELLED and pickups on a public holiday carry a note in the
// description. Returns false when the pickup date is unusable.
func writePickupEvent(w io.Writer, pickup Pickup) bool {
	eventDate, err := time.Parse(DateLayout, pickup.Date)
	if err != nil {
		return false
	}

	// UID must be stable across feeds for proper calendar updates
	uid := fmt.Sprintf("%s-%s@ophaalkalender.limburg.net", pickup.Date, normalizeLabel(pickup.Type.String()))

	description := fmt.Sprintf("Ophaling %s", pickup.Type)
	if holiday, ok := HolidayName(pickup.Date); ok {
		description += fmt.Sprintf(" (feestdag: %s)", holiday)
	}
	if pickup.Cancelled() && pickup.Reason != "" {
		description += fmt.Sprintf(" - geannuleerd: %s", pickup.Reason)
	}

	// All-day event
	fmt.Fprintln(w, "BEGIN:VEVENT")
	fmt.Fprintf(w, "UID:%s\n", uid)
	fmt.Fprintf(w, "DTSTAMP:%s\n", time.Now().UTC().Format("20060102T150405Z"))
	fmt.Fprintf(w, "DTSTART;VALUE=DATE:%s\n", eventDate.Format("20060102"))
	fmt.Fprintf(w, "DTEND;VALUE=DATE:%s\n", eventDate.AddDate(0, 0, 1).Format("20060102"))
	fmt.Fprintf(w, "SUMMARY:%s\n", pickup.Type)
	fmt.Fprintf(w, "DESCRIPTION:%s\n", description)
	if pickup.Cancelled() {
		fmt.Fprintln(w, "STATUS:CANCELLED")
	}
	return true
}

// AddAlarm adds an alarm/reminder to an ICS event
func AddAlarm(w io.Writer, eventDate time.Time, daysBefore int, alarmTime string, description string) {
	// Parse alarm time (HH:MM format)
	parts := strings.Split(alarmTime, ":")
	if len(parts) != 2 {
		return
	}

	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return
	}

	// Event is at 00:00 on eventDate, alarm should be at alarmTime on
	// (eventDate - daysBefore); the trigger is relative to event start.
	alarmDate := eventDate.AddDate(0, 0, -daysBefore)
	alarmDateTime := time.Date(alarmDate.Year(), alarmDate.Month(), alarmDate.Day(), hour, minute, 0, 0, time.UTC)
	eventStart := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, time.UTC)
	duration := alarmDateTime.Sub(eventStart)

	// Format as ISO 8601 duration, negative when before the event
	totalMinutes := int(duration.Minutes())
	isNegative := totalMinutes < 0
	if isNegative {
		totalMinutes = -totalMinutes
	}

	days := totalMinutes / (24 * 60)
	remainingMinutes := totalMinutes % (24 * 60)
	hours := remainingMinutes / 60
	minutes := remainingMinutes % 60

	var trigger string
	if isNegative {
		trigger = fmt.Sprintf("-P%dDT%dH%dM", days, hours, minutes)
	} else {
		trigger = fmt.Sprintf("P%dDT%dH%dM", days, hours, minutes)
	}

	fmt.Fprintln(w, "BEGIN:VALARM")
	fmt.Fprintln(w, "ACTION:DISPLAY")
	fmt.Fprintf(w, "DESCRIPTION:Herinnering: %s\n", description)
	fmt.Fprintf(w, "TRIGGER:%s\n", trigger)
	fmt.Fprintln(w, "END:VALARM")
}

// GenerateCSV writes the upcoming pickups in the same column layout as
// the upstream export, so a download can be re-used as an upload source.
func GenerateCSV(w http.ResponseWriter, pickups []Pickup) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=ophaalkalender.csv")

	fmt.Fprintln(w, "Datum;Ophaling;Verwijderd;Reden")
	for _, pickup := range pickups {
		fmt.Fprintf(w, "%s;%s;%s;%s\n", pickup.Date, pickup.Type, pickup.Removed, pickup.Reason)
	}
}

// GenerateJSON writes the upcoming pickups as a JSON document.
func GenerateJSON(w http.ResponseWriter, pickups []Pickup) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=ophaalkalender.json")

	data := map[string]interface{}{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"pickups":      pickups,
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON export: %v", err)
		http.Error(w, ErrFailedToGenerate, http.StatusInternalServerError)
	}
}

// GenerateSubscriptionICS writes an iCalendar subscription feed.
// Unlike GenerateICS, this is designed for calendar subscriptions:
// - No Content-Disposition attachment header (inline content)
// - No VALARM blocks (most calendar apps ignore them in subscriptions)
// - Includes METHOD:PUBLISH and a suggested refresh interval
func GenerateSubscriptionICS(w http.ResponseWriter, pickups []Pickup) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")

	fmt.Fprintln(w, "BEGIN:VCALENDAR")
	fmt.Fprintln(w, "VERSION:2.0")
	fmt.Fprintf(w, "PRODID:%s\n", ICSProductID)
	fmt.Fprintln(w, "METHOD:PUBLISH") // Required for subscriptions
	fmt.Fprintln(w, "X-WR-CALNAME:Ophaalkalender Limburg.net")
	fmt.Fprintf(w, "X-WR-TIMEZONE:%s\n", ICSTimezone)
	fmt.Fprintln(w, "CALSCALE:GREGORIAN")
	fmt.Fprintln(w, "X-PUBLISHED-TTL:PT12H") // Matches the refresh interval

	for _, pickup := range pickups {
		if writePickupEvent(w, pickup) {
			fmt.Fprintln(w, "END:VEVENT")
		}
	}

	fmt.Fprintln(w, "END:VCALENDAR")
}
