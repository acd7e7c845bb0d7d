package app

// NextPickup returns the single next upcoming pickup across all waste
// types, or false if no snapshot exists or nothing is upcoming. Ties on
// the date are broken by the waste type declaration order.
func NextPickup() (Pickup, bool) {
	snap := CurrentSnapshot()
	if snap == nil || snap.Next == nil {
		return Pickup{}, false
	}
	return *snap.Next, true
}

// NextPickupFor returns the next pickup date for the given waste type.
func NextPickupFor(wt WasteType) (string, bool) {
	snap := CurrentSnapshot()
	if snap == nil {
		return "", false
	}
	partition := snap.ByType[wt]
	if len(partition) == 0 {
		return "", false
	}
	return partition[0].Date, true
}

// UpcomingFor returns all upcoming pickup dates for the given waste type
// in ascending order.
func UpcomingFor(wt WasteType) []string {
	snap := CurrentSnapshot()
	if snap == nil {
		return nil
	}
	partition := snap.ByType[wt]
	if len(partition) == 0 {
		return nil
	}
	dates := make([]string, len(partition))
	for i, p := range partition {
		dates[i] = p.Date
	}
	return dates
}

// UpcomingPickups returns every upcoming pickup ordered by date.
func UpcomingPickups() []Pickup {
	snap := CurrentSnapshot()
	if snap == nil {
		return nil
	}
	return snap.AllPickups()
}
