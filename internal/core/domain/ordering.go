package domain

import "sort"

// SortRecords orders records by creation time, ties broken by ID so the
// order is total.
func SortRecords(records []Record, order Order) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if order == OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// PendingFirst returns a copy of records with every pending record ahead of
// the rest, keeping the relative order inside both groups.
func PendingFirst(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Status == StatusPending {
			out = append(out, r)
		}
	}
	for _, r := range records {
		if r.Status != StatusPending {
			out = append(out, r)
		}
	}
	return out
}
