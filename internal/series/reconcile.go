package series

import (
	"fmt"
	"slices"
	"sort"
)

// Reconcile stitches sources into one series indexed by key. Rows are taken
// in source order and a row whose key was already seen is dropped, so on
// overlap the earlier source wins. The result is sorted ascending by key; rows
// with equal keys keep their relative order. Nil sources are skipped.
func Reconcile(key string, sources ...*Series) (*Series, error) {
	out := &Series{Index: key}

	first := true
	for _, src := range sources {
		if src == nil {
			continue
		}
		if !src.Has(key) {
			return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, key, src.Name)
		}
		if first {
			out.Name = src.Name
			out.Resolution = src.Resolution
			first = false
		}
		for _, c := range src.Columns {
			if !slices.Contains(out.Columns, c) {
				out.Columns = append(out.Columns, c)
			}
		}
	}

	seen := make(map[int64]struct{})
	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, r := range src.Rows {
			t, _ := r.Time(key)
			k := t.UnixNano()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out.Rows = append(out.Rows, r)
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Key(i).Before(out.Key(j))
	})
	return out, nil
}
