package finance

import "coppia/internal/core"

// ConsecutiveDays returns the length of the run of activity days ending today,
// or ending yesterday when nothing has been recorded yet today.
// Days may be unsorted and contain duplicates.
func ConsecutiveDays(days []core.Date, today core.Date) int {
	seen := make(map[core.Date]struct{}, len(days))
	for _, d := range days {
		seen[core.DateOf(d.Time)] = struct{}{}
	}

	cursor := core.DateOf(today.Time)
	if _, ok := seen[cursor]; !ok {
		cursor = core.DateOf(cursor.AddDate(0, 0, -1))
	}
	streak := 0
	for {
		if _, ok := seen[cursor]; !ok {
			return streak
		}
		streak++
		cursor = core.DateOf(cursor.AddDate(0, 0, -1))
	}
}
