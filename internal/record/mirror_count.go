package record

import "strconv"

// MirrorCount is the mirror knowledge of a record: either Unknown, or Known with a count.
// A known count of zero means a source explicitly reported that no mirrors exist.
type MirrorCount struct {
	known bool
	n     int
}

// Unknown is the count of a record no mirror source has touched.
func Unknown() MirrorCount {
	return MirrorCount{}
}

// Known is a count reported by at least one mirror source.
func Known(n int) MirrorCount {
	return MirrorCount{known: true, n: n}
}

// Get returns the count and whether it is known.
func (c MirrorCount) Get() (int, bool) {
	return c.n, c.known
}

// IsKnown reports whether any mirror source has touched the record.
func (c MirrorCount) IsKnown() bool {
	return c.known
}

// Or returns the count, or fallback when it is unknown.
func (c MirrorCount) Or(fallback int) int {
	if !c.known {
		return fallback
	}
	return c.n
}

// String renders the count, or "None" when unknown.
func (c MirrorCount) String() string {
	if !c.known {
		return "None"
	}
	return strconv.Itoa(c.n)
}
