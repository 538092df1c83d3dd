package campaign

import (
	"math/rand"
	"sort"
	"time"
)

// slotJitter keeps generated posts from landing at mechanical fixed times.
const slotJitter = 30 * time.Minute

// TimeSlots spreads total posting times across calendar days, perDay posts
// per day, inside the [startHour, endHour) window. Each slot sits at its
// interval midpoint plus up to ±30 minutes of jitter. Slots already in the
// past roll forward to later days, so the returned slice always has exactly
// total future times, ascending.
func TimeSlots(start time.Time, total, perDay, startHour, endHour int, rng *rand.Rand, now time.Time) []time.Time {
	if total <= 0 || perDay <= 0 {
		return nil
	}
	if endHour <= startHour {
		startHour, endHour = 9, 21
	}
	window := time.Duration(endHour-startHour) * time.Hour
	interval := window / time.Duration(perDay)

	slots := make([]time.Time, 0, total)
	for day := 0; len(slots) < total; day++ {
		base := time.Date(start.Year(), start.Month(), start.Day(), startHour, 0, 0, 0, start.Location())
		base = base.AddDate(0, 0, day)
		for i := 0; i < perDay && len(slots) < total; i++ {
			center := base.Add(interval*time.Duration(i) + interval/2)
			jitter := time.Duration(rng.Int63n(int64(2*slotJitter))) - slotJitter
			slot := center.Add(jitter)
			if !slot.After(now) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}
