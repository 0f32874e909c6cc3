package facts

import "strconv"

// Delta captures added and removed fact rows between two region streams.
// Regions are compared as a set: emission order does not matter.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// Empty reports whether the two streams held the same facts
func (d Delta) Empty() bool {
	return len(d.Added.Files) == 0 && len(d.Added.Regions) == 0 && len(d.Added.Variables) == 0 &&
		len(d.Removed.Files) == 0 && len(d.Removed.Regions) == 0 && len(d.Removed.Variables) == 0
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffFileRows(from.Files, to.Files)
	out.Regions = diffRegionRows(from.Regions, to.Regions)
	out.Variables = diffVariableRows(from.Variables, to.Variables)

	return out
}

func diffFileRows(from, to []FileRow) []FileRow {
	return diffRows(from, to, func(r FileRow) string {
		return r.Path
	})
}

func diffRegionRows(from, to []RegionRow) []RegionRow {
	return diffRows(from, to, func(r RegionRow) string {
		return r.File + "|" + intKey(r.BeginLine) + "|" + intKey(r.BeginCol) + "|" +
			intKey(r.EndLine) + "|" + intKey(r.EndCol) + "|" + r.Kind + "|" + r.Detail
	})
}

func diffVariableRows(from, to []VariableRow) []VariableRow {
	return diffRows(from, to, func(r VariableRow) string {
		return r.Key
	})
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]T, len(from))
	for _, row := range from {
		fromSet[key(row)] = row
	}
	var diff []T
	for _, row := range to {
		rowKey := key(row)
		if _, ok := fromSet[rowKey]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func intKey(v int) string {
	return strconv.Itoa(v)
}
