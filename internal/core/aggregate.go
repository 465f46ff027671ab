package core

import (
	"sort"
	"time"
)

// PersonTotal is one row of the per-contributor leaderboard.
type PersonTotal struct {
	Name  string `json:"name"`
	Total Money  `json:"total"`
	Email string `json:"email"`
}

// FundSummary bundles everything the presentation layer renders in one
// read: totals, progress and the pledge window deadline.
type FundSummary struct {
	ByRoom    map[Room]Money `json:"byRoom"`
	ByPerson  []PersonTotal  `json:"byPerson"`
	Total     Money          `json:"total"`
	Target    Money          `json:"target"`
	Remaining Money          `json:"remaining"`
	Progress  float64        `json:"progress"`
	StartDate time.Time      `json:"startDate"`
	Deadline  time.Time      `json:"deadline"`
}

// TotalsByRoom sums pledge amounts per room. Every room of the fixed
// set appears in the result; rooms without pledges map to zero.
func TotalsByRoom(ps *PledgeSet) map[Room]Money {
	totals := make(map[Room]Money, len(Rooms))
	for _, r := range Rooms {
		totals[r] = Money{}
	}
	for _, p := range ps.Pledges {
		t := totals[p.Room]
		t.Cents += p.Amount.Cents
		totals[p.Room] = t
	}
	return totals
}

// TotalsByPerson groups pledges by contributor (case-insensitive),
// summing amounts across rooms and keeping the email of the most
// recent pledge. Rows sort by descending total; ties keep first-seen
// order.
func TotalsByPerson(ps *PledgeSet) []PersonTotal {
	type entry struct {
		row   PersonTotal
		seen  time.Time
		order int
	}
	index := make(map[string]int)
	var entries []entry

	for _, p := range ps.Pledges {
		key := NameKey(p.Name)
		if i, ok := index[key]; ok {
			entries[i].row.Total.Cents += p.Amount.Cents
			// Later position wins on equal timestamps.
			if !p.Timestamp.Before(entries[i].seen) {
				entries[i].row.Email = p.Email
				entries[i].seen = p.Timestamp
			}
			continue
		}
		index[key] = len(entries)
		entries = append(entries, entry{
			row: PersonTotal{
				Name:  NormalizeName(p.Name),
				Total: p.Amount,
				Email: p.Email,
			},
			seen:  p.Timestamp,
			order: len(entries),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].row.Total.Cents > entries[j].row.Total.Cents
	})

	rows := make([]PersonTotal, len(entries))
	for i, e := range entries {
		rows[i] = e.row
	}
	return rows
}

// Progress returns the funded percentage, capped at 100. The target is
// validated positive at startup; a non-positive target here yields 0
// rather than dividing by zero.
func Progress(ps *PledgeSet, target Money) float64 {
	if target.Cents <= 0 {
		return 0
	}
	pct := 100 * float64(ps.Total().Cents) / float64(target.Cents)
	if pct > 100 {
		return 100
	}
	return pct
}

// Summarize derives the full fund summary for a pledge set.
func Summarize(ps *PledgeSet, target Money, window time.Duration) FundSummary {
	total := ps.Total()
	return FundSummary{
		ByRoom:    TotalsByRoom(ps),
		ByPerson:  TotalsByPerson(ps),
		Total:     total,
		Target:    target,
		Remaining: ps.Remaining(target),
		Progress:  Progress(ps, target),
		StartDate: ps.StartDate,
		Deadline:  ps.Deadline(window),
	}
}
