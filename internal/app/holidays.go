package app

import (
	"time"
)

// GetBelgianHolidays returns all Belgian public holidays for the given
// year, keyed by ISO date. Pickups falling on one of these are annotated
// in the exports and the status API.
func GetBelgianHolidays(year int) map[string]string {
	holidays := make(map[string]string)

	// Fixed holidays
	holidays[formatDate(year, 1, 1)] = "Nieuwjaar"
	holidays[formatDate(year, 5, 1)] = "Dag van de Arbeid"
	holidays[formatDate(year, 7, 21)] = "Nationale Feestdag"
	holidays[formatDate(year, 8, 15)] = "O.L.V. Hemelvaart"
	holidays[formatDate(year, 11, 1)] = "Allerheiligen"
	holidays[formatDate(year, 11, 11)] = "Wapenstilstand"
	holidays[formatDate(year, 12, 25)] = "Kerstmis"

	// Easter-based holidays (movable)
	easter := calculateEaster(year)

	// Paasmaandag (Easter Monday): Easter + 1 day
	holidays[formatDateFromTime(easter.AddDate(0, 0, 1))] = "Paasmaandag"

	// Hemelvaartsdag (Ascension Day): Easter + 39 days
	holidays[formatDateFromTime(easter.AddDate(0, 0, 39))] = "Hemelvaartsdag"

	// Pinkstermaandag (Whit Monday): Easter + 50 days
	holidays[formatDateFromTime(easter.AddDate(0, 0, 50))] = "Pinkstermaandag"

	return holidays
}

// HolidayName returns the holiday name for an ISO date, if it is one.
func HolidayName(date string) (string, bool) {
	if len(date) < 4 {
		return "", false
	}
	year, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", false
	}
	name, ok := GetBelgianHolidays(year.Year())[date]
	return name, ok
}

// calculateEaster calculates Easter Sunday using the Meeus/Jones/Butcher algorithm
func calculateEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	// Use noon to avoid timezone issues when formatting to YYYY-MM-DD
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}

// formatDate formats a date as YYYY-MM-DD
func formatDate(year, month, day int) string {
	// Use noon to avoid timezone issues when formatting to YYYY-MM-DD
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC).Format(DateLayout)
}

// formatDateFromTime formats a time.Time as YYYY-MM-DD
func formatDateFromTime(t time.Time) string {
	return t.Format(DateLayout)
}
