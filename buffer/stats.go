package buffer

import "github.com/puzpuzpuz/xsync/v3"

// Stats counts what the pool has been doing. Counters are sharded so that hot paths do not
// serialize on a stats mutex.
type Stats struct {
	hits       *xsync.Counter
	misses     *xsync.Counter
	news       *xsync.Counter
	evictions  *xsync.Counter
	writebacks *xsync.Counter
	flushes    *xsync.Counter
}

func newStats() *Stats {
	return &Stats{
		hits:       xsync.NewCounter(),
		misses:     xsync.NewCounter(),
		news:       xsync.NewCounter(),
		evictions:  xsync.NewCounter(),
		writebacks: xsync.NewCounter(),
		flushes:    xsync.NewCounter(),
	}
}

type StatsSnapshot struct {
	Hits       int64
	Misses     int64
	News       int64
	Evictions  int64
	Writebacks int64
	Flushes    int64
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:       s.hits.Value(),
		Misses:     s.misses.Value(),
		News:       s.news.Value(),
		Evictions:  s.evictions.Value(),
		Writebacks: s.writebacks.Value(),
		Flushes:    s.flushes.Value(),
	}
}
