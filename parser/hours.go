package parser

import (
	"sort"

	"github.com/Foahh/openrice-crawler/models"
)

// NormalizeBusinessHours groups raw schedule rows by weekday and flattens
// every sub-period of every row into one ordered period list per day. The
// closed/24hr flags come from the first row seen for that weekday; rows for
// the same weekday are assumed flag-consistent. Days are emitted in weekday
// order, and a weekday with no rows is simply absent.
func NormalizeBusinessHours(hours []models.PoiHour) []models.BusinessHours {
	byDay := make(map[int][]models.PoiHour)
	for _, hour := range hours {
		if hour.DayOfWeek == nil {
			continue
		}
		day := *hour.DayOfWeek
		byDay[day] = append(byDay[day], hour)
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	normalized := make([]models.BusinessHours, 0, len(days))
	for _, day := range days {
		entries := byDay[day]

		periods := make([]models.Period, 0, len(entries))
		for _, entry := range entries {
			if entry.Period1Start != "" && entry.Period1End != "" {
				periods = append(periods, models.Period{Start: entry.Period1Start, End: entry.Period1End})
			}
			if entry.Period2Start != "" && entry.Period2End != "" {
				periods = append(periods, models.Period{Start: entry.Period2Start, End: entry.Period2End})
			}
		}

		first := entries[0]
		normalized = append(normalized, models.BusinessHours{
			DayOfWeek: day,
			Periods:   periods,
			IsClosed:  first.IsClose,
			Is24Hr:    first.Is24Hr,
		})
	}

	return normalized
}
