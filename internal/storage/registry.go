package storage

import (
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// Versions lists every migration version shipped with the binary, ascending.
// Versions are strictly increasing; no two migrations share a version.
func Versions() ([]uint, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	seen := map[uint]struct{}{}
	var out []uint
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		idx := strings.IndexByte(name, '_')
		if idx <= 0 {
			return nil, fmt.Errorf("malformed migration filename %q", name)
		}
		v, err := strconv.ParseUint(name[:idx], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed migration version in %q: %w", name, err)
		}
		if _, dup := seen[uint(v)]; dup {
			return nil, fmt.Errorf("duplicate migration version %d", v)
		}
		seen[uint(v)] = struct{}{}
		out = append(out, uint(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Pending returns the versions still to apply on a database at current,
// ascending. Empty once the database is fully migrated.
func Pending(current uint) ([]uint, error) {
	all, err := Versions()
	if err != nil {
		return nil, err
	}
	var out []uint
	for _, v := range all {
		if v > current {
			out = append(out, v)
		}
	}
	return out, nil
}
