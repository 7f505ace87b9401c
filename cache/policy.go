package cache

import "time"

// Freshness is the classification of a record at a point in time.
type Freshness int

const (
	Absent Freshness = iota
	Fresh
	Stale
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Classify depends only on the record's CachedAt and TTL and now.
func Classify(rec *Record, now time.Time) Freshness {
	if rec == nil {
		return Absent
	}
	if now.Sub(rec.CachedAt) < rec.TTL {
		return Fresh
	}
	return Stale
}

const (
	DefaultLongTTL  = 6 * time.Hour
	DefaultShortTTL = time.Hour
)

// Policy assigns a TTL per endpoint class: channel and playlist metadata
// change rarely and get Long, listings get Short.
type Policy struct {
	Long  time.Duration
	Short time.Duration
}

// DefaultPolicy returns the 6h / 1h policy.
func DefaultPolicy() Policy {
	return Policy{Long: DefaultLongTTL, Short: DefaultShortTTL}
}

// TTLFor is evaluated when a record is written. Changing the policy does
// not touch records already stored.
func (p Policy) TTLFor(e Endpoint) time.Duration {
	long, short := p.Long, p.Short
	if long <= 0 {
		long = DefaultLongTTL
	}
	if short <= 0 {
		short = DefaultShortTTL
	}
	switch e {
	case EndpointChannels, EndpointPlaylists:
		return long
	default:
		return short
	}
}
