package zone

import (
	"sync"
	"sync/atomic"

	"github.com/sandpiper-dns/adns/dname"
)

// Database maps apex names to their currently published Zone, spec.md
// §4.3: "A mapping from apex name to Zone, plus a longest-suffix index."
// Publication is an atomic pointer swap (§3); readers that have already
// taken a Snapshot keep seeing the map they pinned, and the Go runtime's
// garbage collector retires a retired Zone only once nothing — including
// a reader's pinned Snapshot — still references it, satisfying §3's
// "grace-period mechanism... does not prescribe which" in the simplest
// way the language provides.
type Database struct {
	current atomic.Pointer[map[string]*Zone] // keyed by apex CanonicalKey

	// writeMu serializes publishers; it is never held by a reader
	// (spec.md §5: "writers publish under a process-wide lock covering
	// only the database-index swap").
	writeMu sync.Mutex
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	d := &Database{}
	empty := map[string]*Zone{}
	d.current.Store(&empty)
	return d
}

// Snapshot returns the currently published apex→Zone map. The caller
// holds a stable view: zones reachable from it are never mutated, and
// the map itself is never mutated after publication (spec.md §3:
// "Readers pin the database version they observe").
func (d *Database) Snapshot() map[string]*Zone {
	return *d.current.Load()
}

// Publish installs z as the current version of its apex zone, atomically
// swapping in a new top-level map that shares every other apex's entry
// with the previous one (spec.md §5: "Publication of a new zone version
// is globally visible to all subsequent begin calls").
func (d *Database) Publish(z *Zone) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	old := *d.current.Load()
	next := make(map[string]*Zone, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[z.Apex.CanonicalKey()] = z
	d.current.Store(&next)
}

// Remove unpublishes the zone at apex, if any.
func (d *Database) Remove(apex dname.Name) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	old := *d.current.Load()
	if _, ok := old[apex.CanonicalKey()]; !ok {
		return
	}
	next := make(map[string]*Zone, len(old))
	for k, v := range old {
		if k != apex.CanonicalKey() {
			next[k] = v
		}
	}
	d.current.Store(&next)
}

// Lookup implements spec.md §4.3's "Longest-suffix zone lookup": given a
// QNAME, return the zone whose apex is the longest suffix of QNAME, or
// none. It walks the snapshot passed in (from a prior Snapshot call), not
// the live database, so a transaction's view stays internally consistent
// even if a publish happens concurrently.
func Lookup(snapshot map[string]*Zone, qname dname.Name) (*Zone, bool) {
	cur := qname
	for {
		if z, ok := snapshot[cur.CanonicalKey()]; ok {
			return z, true
		}
		parent, ok := cur.StripLeftmostLabel()
		if !ok {
			return nil, false
		}
		cur = parent
	}
}
