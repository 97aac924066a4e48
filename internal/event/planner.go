package event

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type span struct {
	event      Event
	start, end time.Time
	day        string
}

// ConflictGroups seeds a group from each ungrouped event and pulls in every
// other ungrouped event starting on the same day and overlapping it. Events
// whose start or end cannot be parsed, or whose end is not after the start,
// never conflict.
func ConflictGroups(events []Event) []ConflictGroup {
	spans := make([]span, 0, len(events))
	for _, ev := range events {
		start, ok := parseTime(ev.Start)
		if !ok {
			continue
		}
		end, ok := parseTime(ev.End)
		if !ok || !end.After(start) {
			continue
		}
		spans = append(spans, span{event: ev, start: start, end: end, day: start.Format(time.DateOnly)})
	}

	grouped := make([]bool, len(spans))
	var groups []ConflictGroup
	for i, seed := range spans {
		if grouped[i] {
			continue
		}
		members := []int{i}
		for j := range spans {
			if j == i || grouped[j] || spans[j].day != seed.day {
				continue
			}
			if overlaps(seed, spans[j]) {
				members = append(members, j)
			}
		}
		if len(members) == 1 {
			continue
		}

		group := ConflictGroup{Events: make([]Event, 0, len(members))}
		earliest, latest := seed.start, seed.end
		for _, idx := range members {
			grouped[idx] = true
			s := spans[idx]
			group.Events = append(group.Events, s.event)
			if s.start.Before(earliest) {
				earliest = s.start
			}
			if s.end.After(latest) {
				latest = s.end
			}
		}
		group.Start = earliest.Format(time.RFC3339)
		group.End = latest.Format(time.RFC3339)
		group.LeadingID = leadingEvent(group.Events)
		groups = append(groups, group)
	}
	return groups
}

func overlaps(a, b span) bool {
	return a.start.Before(b.end) && b.start.Before(a.end)
}

// leadingEvent is the first event holding the most votes, or "" when no event
// in the group has any.
func leadingEvent(events []Event) string {
	best, bestVotes := "", 0
	for _, ev := range events {
		if n := voteCount(ev.Votes); n > bestVotes {
			best, bestVotes = ev.ID, n
		}
	}
	return best
}

func voteCount(votes json.RawMessage) int {
	var list []json.RawMessage
	if err := json.Unmarshal(votes, &list); err != nil {
		return 0
	}
	return len(list)
}

// SplitCosts divides each event's cost evenly, rounded to cents, across the
// members assigned to it. A share counts as paid when payments[member] is true.
func SplitCosts(events []Event) []MemberCost {
	byMember := map[string]*MemberCost{}
	for _, ev := range events {
		if !ev.Cost.IsPositive() {
			continue
		}
		assigned := assignedMembers(ev.CostAssignments)
		if len(assigned) == 0 {
			continue
		}
		share := ev.Cost.Div(decimal.NewFromInt(int64(len(assigned)))).Round(2)
		paid := paidMembers(ev.Payments)

		for _, accountID := range assigned {
			mc, ok := byMember[accountID]
			if !ok {
				mc = &MemberCost{AccountID: accountID, Events: []CostShare{}}
				byMember[accountID] = mc
			}
			isPaid := paid[accountID]
			mc.Total = mc.Total.Add(share)
			if isPaid {
				mc.Paid = mc.Paid.Add(share)
			}
			mc.Events = append(mc.Events, CostShare{EventID: ev.ID, Title: ev.Title, Share: share, Paid: isPaid})
		}
	}

	out := make([]MemberCost, 0, len(byMember))
	for _, mc := range byMember {
		mc.Outstanding = mc.Total.Sub(mc.Paid)
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func assignedMembers(assignments map[string]bool) []string {
	var out []string
	for accountID, assigned := range assignments {
		if assigned {
			out = append(out, accountID)
		}
	}
	sort.Strings(out)
	return out
}

func paidMembers(payments json.RawMessage) map[string]bool {
	var raw map[string]any
	if err := json.Unmarshal(payments, &raw); err != nil {
		return nil
	}
	paid := make(map[string]bool, len(raw))
	for accountID, v := range raw {
		if b, ok := v.(bool); ok && b {
			paid[accountID] = true
		}
	}
	return paid
}
