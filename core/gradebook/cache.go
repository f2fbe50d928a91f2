package gradebook

import (
	"sync"

	"github.com/trezcool/gradebook/core/grade"
)

// Cache is the ordered list of grades of one view.
//
// Every local change (optimistic patch, rollback, confirmed update, removal) bumps a revision
// recorded per grade id. A load remembers the revision it started at so that, once it resolves,
// records changed locally in the meantime keep their local value. A patched record awaiting
// its Settle or Restore always keeps its local value.
// Loads are numbered too: a response is dropped when a load started later has already been applied.
type Cache struct {
	mu         sync.RWMutex
	grades     []grade.Grade
	loaded     bool
	rev        uint64
	revs       map[int]uint64 // grade id -> revision of its last local change
	removed    map[int]uint64 // grade id -> revision of its local removal
	pending    map[int]int    // grade id -> patches not settled yet
	seq        uint64
	appliedSeq uint64
}

// LoadTicket identifies one load of the cache.
type LoadTicket struct {
	seq uint64
	rev uint64
}

func NewCache() *Cache {
	return &Cache{
		grades:  make([]grade.Grade, 0),
		revs:    make(map[int]uint64),
		removed: make(map[int]uint64),
		pending: make(map[int]int),
	}
}

// Grades returns a copy of the cached grades.
func (c *Cache) Grades() []grade.Grade {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]grade.Grade, len(c.grades))
	copy(res, c.grades)
	return res
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.grades)
}

// Loaded reports whether a load has been applied at least once.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Cache) Get(id int) (grade.Grade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.index(id); i >= 0 {
		return c.grades[i], true
	}
	return grade.Grade{}, false
}

// Revision returns the current local revision.
func (c *Cache) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rev
}

// BeginLoad must be called before fetching the grades later passed to Replace.
func (c *Cache) BeginLoad() LoadTicket {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	return LoadTicket{seq: c.seq, rev: c.rev}
}

// Replace swaps the cached grades for fetched and reports whether it did.
// Nothing happens when a load begun after ticket has already been applied.
func (c *Cache) Replace(ticket LoadTicket, fetched []grade.Grade) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ticket.seq < c.appliedSeq {
		return false
	}

	res := make([]grade.Grade, 0, len(fetched))
	for _, g := range fetched {
		if rev, ok := c.removed[g.ID]; ok && rev > ticket.rev {
			continue
		}
		if rev, ok := c.revs[g.ID]; (ok && rev > ticket.rev) || c.pending[g.ID] > 0 {
			if i := c.index(g.ID); i >= 0 {
				g = c.grades[i]
			}
		}
		res = append(res, g)
	}

	c.grades = res
	c.loaded = true
	c.appliedSeq = ticket.seq
	c.prune(ticket.rev)
	return true
}

// Patch optimistically applies ug on the grade matching id and returns the grade as it was.
func (c *Cache) Patch(id int, ug grade.UpdateGrade) (prev grade.Grade, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return grade.Grade{}, false
	}
	prev = c.grades[i]
	c.grades = OptimisticUpdate(c.grades, id, ug)
	c.pending[id]++
	c.touch(id)
	return prev, true
}

// Settle replaces a patched grade with its confirmed value.
func (c *Cache) Settle(confirmed grade.Grade) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unpin(confirmed.ID)
	return c.put(confirmed)
}

// Restore rolls a Patch back, putting prev in place of the grade with the same id.
func (c *Cache) Restore(prev grade.Grade) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unpin(prev.ID)
	return c.put(prev)
}

// Put replaces the cached grade having g's id. It does not add unknown grades.
func (c *Cache) Put(g grade.Grade) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.put(g)
}

func (c *Cache) put(g grade.Grade) bool {
	i := c.index(g.ID)
	if i < 0 {
		return false
	}
	grades := make([]grade.Grade, len(c.grades))
	copy(grades, c.grades)
	grades[i] = g
	c.grades = grades
	c.touch(g.ID)
	return true
}

// Remove drops the grade matching id and returns it.
func (c *Cache) Remove(id int) (grade.Grade, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return grade.Grade{}, false
	}
	g := c.grades[i]
	c.grades = RemoveLocal(c.grades, id)
	c.rev++
	c.removed[id] = c.rev
	delete(c.revs, id)
	return g, true
}

func (c *Cache) index(id int) int {
	for i, g := range c.grades {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) unpin(id int) {
	if c.pending[id] > 1 {
		c.pending[id]--
	} else {
		delete(c.pending, id)
	}
}

func (c *Cache) touch(id int) {
	c.rev++
	c.revs[id] = c.rev
}

// prune forgets the local changes a load started at rev already accounts for.
func (c *Cache) prune(rev uint64) {
	for id, r := range c.revs {
		if r <= rev {
			delete(c.revs, id)
		}
	}
	for id, r := range c.removed {
		if r <= rev {
			delete(c.removed, id)
		}
	}
}
