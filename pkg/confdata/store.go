package confdata

import (
	"reflect"
	"sync"
	"time"
)

// record is the internal representation; Handle wraps a pointer to one so
// that external code never touches these fields directly.
type record struct {
	stack     Stack
	ifindex   uint32
	typ       Type
	timestamp int64
	flags     Flags
	payload   any
}

// Handle is an opaque reference to a stored record, handed out by Cursor.
// It exposes only typed accessors, never the backing struct.
type Handle struct{ r *record }

// Stack returns the stack the record belongs to.
func (h Handle) Stack() Stack { return h.r.stack }

// Ifindex returns the interface index the record belongs to.
func (h Handle) Ifindex() uint32 { return h.r.ifindex }

// Type returns the record's type byte.
func (h Handle) Type() Type { return h.r.typ }

// Timestamp returns the record's last-asserted time.
func (h Handle) Timestamp() int64 { return h.r.timestamp }

// Flags returns the record's flag bits.
func (h Handle) Flags() Flags { return h.r.flags }

// Payload returns the record's typed payload; callers type-assert to the
// struct matching h.Type() (AddrPayload, RouterPayload, ...).
func (h Handle) Payload() any { return h.r.payload }

// Store is a thread-safe, timestamp-indexed collection of ConfigRecords.
// Every exported operation is serialized by a single mutex, matching the
// original's process-wide lock (SetFlags and ClearFlags run under the lock
// held by the ForallMask iteration that calls them); protocol I/O must
// happen outside of any Store call.
type Store struct {
	mu      sync.Mutex
	records []*record
	now     func() time.Time
}

// New creates an empty record store.
func New() *Store {
	return &Store{now: time.Now}
}

// Add inserts a new record, or — if one already exists for the same
// (stack, ifindex, type, payload) — bumps its timestamp to the maximum of
// the two (invariant I1).
func (s *Store) Add(stack Stack, ifindex uint32, typ Type, timestamp int64, flags Flags, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.stack == stack && r.ifindex == ifindex && r.typ == typ && payloadEqual(r.payload, payload) {
			if timestamp > r.timestamp {
				r.timestamp = timestamp
			}
			return
		}
	}
	s.records = append(s.records, &record{
		stack: stack, ifindex: ifindex, typ: typ,
		timestamp: timestamp, flags: flags, payload: payload,
	})
}

func payloadEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Cursor is handed to ForallMask's callback; Remove deletes the current
// record, Stop ends the iteration early. Both take effect atomically under
// the store's lock.
type Cursor struct {
	remove bool
	stop   bool
}

// Remove marks the current record for deletion once the callback returns.
func (c *Cursor) Remove() { c.remove = true }

// Stop ends iteration after the current callback returns.
func (c *Cursor) Stop() { c.stop = true }

// ForallMask iterates every record matching (stack, ifindex, typ&mask).
// stack == AnyStack, ifindex == 0, or (typ&mask) == 0 act as wildcards,
// matching the original semantics. The callback may call Remove and/or
// Stop on the Cursor; deletions are applied atomically once iteration
// finishes the matched record.
func (s *Store) ForallMask(stack Stack, ifindex uint32, typ Type, mask Type, fn func(Handle, *Cursor)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0:0]
	stopped := false
	for _, r := range s.records {
		match := (stack == AnyStack || stack == r.stack) &&
			(ifindex == 0 || ifindex == r.ifindex) &&
			((typ&mask) == 0 || (typ&mask) == (r.typ&mask))

		if !match || stopped {
			kept = append(kept, r)
			continue
		}

		cur := &Cursor{}
		fn(Handle{r: r}, cur)
		if !cur.remove {
			kept = append(kept, r)
		}
		if cur.stop {
			stopped = true
		}
	}
	s.records = kept
}

// Forall is ForallMask with an exact-match mask (0xFF).
func (s *Store) Forall(stack Stack, ifindex uint32, typ Type, fn func(Handle, *Cursor)) {
	s.ForallMask(stack, ifindex, typ, 0xFF, fn)
}

// Free deletes every record matching (stack, ifindex, typ) whose timestamp
// is strictly less than before (or all matching records if before == 0).
func (s *Store) Free(stack Stack, ifindex uint32, typ Type, before int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0:0]
	for _, r := range s.records {
		match := (stack == AnyStack || stack == r.stack) &&
			(ifindex == 0 || ifindex == r.ifindex) &&
			r.typ == typ &&
			(before == 0 || r.timestamp < before)
		if !match {
			kept = append(kept, r)
		}
	}
	s.records = kept
}

// SetFlags ORs extra bits into h's flags and returns the previous value.
// It is called from inside a Forall/ForallMask callback, where the store's
// lock is already held, so it does not take the lock itself.
func (s *Store) SetFlags(h Handle, extra Flags) Flags {
	old := h.r.flags
	h.r.flags |= extra
	return old
}

// ClearFlags ANDs out bits from h's flags and returns the previous value.
// Like SetFlags, it is called from inside a Forall/ForallMask callback and
// relies on the lock that the iteration already holds.
func (s *Store) ClearFlags(h Handle, remove Flags) Flags {
	old := h.r.flags
	h.r.flags &^= remove
	return old
}
