package weather

import (
	"sort"
	"time"
)

// DailySummaries folds interval samples into per-day summaries in the city's
// local time. Days are keyed by shifting each sample's UTC timestamp by
// utcOffsetSeconds and reading the calendar date of the result; no second
// offset is applied on top of the shift. The summary for the local current
// date is always dropped (it would describe a partial day), the rest are
// sorted by date ascending and capped at days entries.
//
// Samples without a positive timestamp cannot be assigned to a day and are
// skipped. Days <= 0 yields no summaries.
func DailySummaries(samples []Sample, utcOffsetSeconds, days int) []DaySummary {
	return dailySummariesAt(time.Now(), samples, utcOffsetSeconds, days)
}

func dailySummariesAt(now time.Time, samples []Sample, utcOffsetSeconds, days int) []DaySummary {
	if days <= 0 {
		return nil
	}

	buckets := make(map[string][]Sample)
	for _, s := range samples {
		if s.Timestamp <= 0 {
			continue
		}
		date := localDate(s.Timestamp, utcOffsetSeconds)
		buckets[date] = append(buckets[date], s)
	}

	// Only the exact local-today date is excluded. Dates in the past stay:
	// a feed lagging behind the caller's clock is the feed's business.
	today := localDate(now.Unix(), utcOffsetSeconds)
	delete(buckets, today)

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	if len(dates) > days {
		dates = dates[:days]
	}

	summaries := make([]DaySummary, 0, len(dates))
	for _, date := range dates {
		summaries = append(summaries, summarizeDay(date, buckets[date], utcOffsetSeconds))
	}
	return summaries
}

// localDate renders the local calendar date of a UTC timestamp shifted by
// the feed's declared offset. Lexicographic order of the result matches
// chronological order.
func localDate(unixSeconds int64, utcOffsetSeconds int) string {
	return time.Unix(unixSeconds+int64(utcOffsetSeconds), 0).UTC().Format("2006-01-02")
}

func summarizeDay(date string, samples []Sample, utcOffsetSeconds int) DaySummary {
	day := DaySummary{
		Date:             date,
		UTCOffsetSeconds: utcOffsetSeconds,
	}

	descriptions := make([]string, 0, len(samples))
	icons := make([]string, 0, len(samples))

	for _, s := range samples {
		if t := s.Temperature; t != nil {
			if day.TemperatureMin == nil || *t < *day.TemperatureMin {
				v := *t
				day.TemperatureMin = &v
			}
			if day.TemperatureMax == nil || *t > *day.TemperatureMax {
				v := *t
				day.TemperatureMax = &v
			}
		}
		if p := s.PrecipProbability; p != nil {
			if day.MaxPrecipProbability == nil || *p > *day.MaxPrecipProbability {
				v := *p
				day.MaxPrecipProbability = &v
			}
		}
		descriptions = append(descriptions, s.Description)
		icons = append(icons, s.Icon)
	}

	day.Description = mostFrequent(descriptions)
	day.Icon = mostFrequent(icons)
	return day
}

// mostFrequent picks the mode among non-empty values. When counts tie, the
// value that appeared earliest wins.
func mostFrequent(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}

	best := ""
	bestCount := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		if c := counts[v]; c > bestCount {
			best = v
			bestCount = c
		}
	}
	return best
}
