// Package availability decides whether a requested stay collides with a room's ledger.
// Nothing here touches storage; search and hold placement both call Conflicts so they agree.
package availability

import (
	"lodge/internal/domains/room/model"
	"lodge/shared/timezone"
	"math"
	"time"
)

const day = 24 * time.Hour

// Interval is half open: Start is included, End is not.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Valid rejects zero length and inverted intervals.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Nights counts calendar nights on the app timezone wall clock and rounds a partial day up.
// A stay across a DST change still counts one night per calendar day.
func (i Interval) Nights() int {
	span := timezone.Wall(i.End).Sub(timezone.Wall(i.Start))

	return int(math.Ceil(float64(span) / float64(day)))
}

func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func entryInterval(entry model.BookedDate) Interval {
	return Interval{Start: entry.StartDate, End: entry.EndDate}
}

// Conflicts reports whether any active entry overlaps requested. Cancelled entries never count.
func Conflicts(entries []model.BookedDate, requested Interval) bool {
	for _, entry := range entries {
		if !entry.Active() {
			continue
		}

		if Overlaps(entryInterval(entry), requested) {
			return true
		}
	}

	return false
}

// FindPending returns the index of the first pending entry whose start and end fall on the
// same calendar days as requested, or -1.
func FindPending(entries []model.BookedDate, requested Interval) int {
	for idx, entry := range entries {
		if entry.Status != model.EntryPending {
			continue
		}

		if timezone.SameDay(entry.StartDate, requested.Start) && timezone.SameDay(entry.EndDate, requested.End) {
			return idx
		}
	}

	return -1
}

// Free filters rooms down to those with no active entry overlapping requested.
// entries is keyed by room id.
func Free(rooms []model.Room, entries map[string][]model.BookedDate, requested Interval) []model.Room {
	free := make([]model.Room, 0, len(rooms))

	for _, room := range rooms {
		if Conflicts(entries[room.ID], requested) {
			continue
		}

		free = append(free, room)
	}

	return free
}
