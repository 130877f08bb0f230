package confdata

import "time"

func sectionType(typ Type) Type { return typ & SectionMask }

// ReadTimestamp returns the section timestamp for typ's source, or 0 if no
// section-timestamp record has been written yet.
func (s *Store) ReadTimestamp(stack Stack, ifindex uint32, typ Type) int64 {
	var ts int64
	s.ForallMask(stack, ifindex, sectionType(typ), 0xFF, func(h Handle, c *Cursor) {
		ts = h.Timestamp()
		c.Stop()
	})
	return ts
}

// NewTimestamp returns a value strictly greater than the current section
// timestamp for typ's source. It busy-sleeps out the remainder of the
// current second when wall-clock time has not yet advanced past the
// previous section timestamp, guaranteeing successive acquisitions are
// always distinguishable (invariant I2). This mirrors the original
// new_timestamp's sleep-until-next-second loop.
func (s *Store) NewTimestamp(stack Stack, ifindex uint32, typ Type) int64 {
	prev := s.ReadTimestamp(stack, ifindex, typ)
	now := s.now().Unix()
	for now <= prev {
		time.Sleep(time.Until(time.Unix(prev+1, 0)))
		now = s.now().Unix()
	}
	return now
}

// WriteTimestamp installs or updates the section-timestamp record for
// typ's source.
func (s *Store) WriteTimestamp(stack Stack, ifindex uint32, typ Type, ts int64) {
	s.Add(stack, ifindex, sectionType(typ), ts, 0, nil)
}

// DelTimestamp removes the section-timestamp record for typ's source.
func (s *Store) DelTimestamp(stack Stack, ifindex uint32, typ Type) {
	s.Free(stack, ifindex, sectionType(typ), 0)
}
