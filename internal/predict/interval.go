package predict

import (
	"sort"
	"time"
)

const (
	secondsPerDay = 86400

	// DefaultInterval is the cadence assumed when nothing better is known.
	DefaultInterval = 7
)

// ScheduleEntry is one concrete episode broadcast.
type ScheduleEntry struct {
	Episode  int   `json:"episode"`
	AiringAt int64 `json:"airs_at_timestamp"`
}

// usableEntries drops entries missing an episode number or timestamp.
func usableEntries(schedule []ScheduleEntry) []ScheduleEntry {
	out := make([]ScheduleEntry, 0, len(schedule))
	for _, e := range schedule {
		if e.Episode > 0 && e.AiringAt > 0 {
			out = append(out, e)
		}
	}
	return out
}

// HasSchedule reports whether the schedule yields an interval: at least
// two usable entries with a positive gap between consecutive episodes.
func HasSchedule(schedule []ScheduleEntry) bool {
	_, ok := scheduleInterval(schedule)
	return ok
}

// EstimateInterval returns the number of days between episode releases.
//
// A schedule with a positive gap between consecutive episodes wins: the
// most common such gap is returned. Otherwise the distance to the
// next airing is classified as daily, weekly or bi-weekly. Everything else
// falls back to DefaultInterval.
func EstimateInterval(nextAiringAt *int64, currentEpisode int, schedule []ScheduleEntry, today time.Time) int {
	if days, ok := scheduleInterval(schedule); ok {
		return days
	}

	if nextAiringAt != nil && currentEpisode > 0 {
		next := DateOf(time.Unix(*nextAiringAt, 0))
		daysUntilNext := DaysBetween(DateOf(today), next)
		if daysUntilNext > 0 {
			switch {
			case daysUntilNext <= 2:
				return 1
			case daysUntilNext >= 12:
				return 14
			default:
				return 7
			}
		}
	}

	return DefaultInterval
}

func scheduleInterval(schedule []ScheduleEntry) (int, bool) {
	entries := usableEntries(schedule)
	if len(entries) < 2 {
		return 0, false
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Episode < entries[j].Episode
	})
	return modeInterval(entries)
}

// modeInterval expects entries sorted by episode. Same-day pairs and gaps
// running against episode order are skipped. Ties resolve to the gap seen
// first.
func modeInterval(entries []ScheduleEntry) (int, bool) {
	counts := make(map[int]int)
	var order []int
	for i := 1; i < len(entries); i++ {
		gap := int((entries[i].AiringAt - entries[i-1].AiringAt) / secondsPerDay)
		if gap <= 0 {
			continue
		}
		if _, seen := counts[gap]; !seen {
			order = append(order, gap)
		}
		counts[gap]++
	}
	if len(order) == 0 {
		return 0, false
	}

	best := order[0]
	for _, gap := range order[1:] {
		if counts[gap] > counts[best] {
			best = gap
		}
	}
	return best, true
}
