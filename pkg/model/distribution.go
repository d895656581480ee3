package model

// StatusCount is one entry of a StatusDistribution.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// StatusDistribution maps each status present in a snapshot to the number of
// jobs carrying it. Entries keep first-appearance order. There are never zero
// entries and never missing statuses.
//
// The zero value is an empty distribution ready to use.
type StatusDistribution struct {
	entries []StatusCount
	index   map[Status]int
}

// Add counts one more job with status s.
func (d *StatusDistribution) Add(s Status) {
	if d.index == nil {
		d.index = make(map[Status]int)
	}
	if i, ok := d.index[s]; ok {
		d.entries[i].Count++
		return
	}
	d.index[s] = len(d.entries)
	d.entries = append(d.entries, StatusCount{Status: s, Count: 1})
}

// Len returns the number of distinct statuses.
func (d StatusDistribution) Len() int {
	return len(d.entries)
}

// IsEmpty returns true when no jobs were counted.
func (d StatusDistribution) IsEmpty() bool {
	return len(d.entries) == 0
}

// Count returns the number of jobs with status s (0 if absent).
func (d StatusDistribution) Count(s Status) int {
	if i, ok := d.index[s]; ok {
		return d.entries[i].Count
	}
	return 0
}

// Total returns the sum of all counts.
func (d StatusDistribution) Total() int {
	total := 0
	for _, e := range d.entries {
		total += e.Count
	}
	return total
}

// Labels returns the statuses in first-appearance order.
func (d StatusDistribution) Labels() []Status {
	out := make([]Status, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.Status
	}
	return out
}

// Counts returns the counts aligned by index with Labels.
func (d StatusDistribution) Counts() []int {
	out := make([]int, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.Count
	}
	return out
}

// Entries returns a copy of the ordered entries.
func (d StatusDistribution) Entries() []StatusCount {
	out := make([]StatusCount, len(d.entries))
	copy(out, d.entries)
	return out
}

// AsMap returns the distribution as an unordered map.
func (d StatusDistribution) AsMap() map[Status]int {
	out := make(map[Status]int, len(d.entries))
	for _, e := range d.entries {
		out[e.Status] = e.Count
	}
	return out
}

// Equal reports whether both distributions have the same entries in the same
// order.
func (d StatusDistribution) Equal(other StatusDistribution) bool {
	if len(d.entries) != len(other.entries) {
		return false
	}
	for i := range d.entries {
		if d.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}
