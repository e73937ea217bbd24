package pagination

import "github.com/Sternrassler/buscador-adesoes/pkg/ata"

// Filter decides whether a raw record takes part in a search. A nil Filter
// accepts every record.
type Filter func(ata.RawRecord) bool

// State accumulates the records of a single search. It is created per
// search and must not be shared between searches.
type State struct {
	seen    map[string]struct{}
	records []ata.RawRecord
}

// NewState creates an empty search state.
func NewState() *State {
	return &State{seen: make(map[string]struct{})}
}

// Merge runs the filter, normalizes and deduplicates the page records,
// emitting every newly seen record to sink in page order. It returns the
// number of records emitted.
func (s *State) Merge(page *ata.Page, filter Filter, sink Sink) int {
	if page == nil {
		return 0
	}
	emitted := 0
	for _, raw := range page.Records {
		if filter != nil && !filter(raw) {
			continue
		}
		rec, ok := ata.Normalize(raw)
		if !ok {
			continue
		}
		key := rec.Key()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		s.records = append(s.records, raw)
		emitted++

		if sink != nil {
			sink.Emit(rec)
		}
	}
	return emitted
}

// Seen reports whether a dedup key was already accepted.
func (s *State) Seen(key string) bool {
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of accepted records.
func (s *State) Len() int {
	return len(s.records)
}

// Records returns the accepted raw records in acceptance order.
func (s *State) Records() []ata.RawRecord {
	out := make([]ata.RawRecord, len(s.records))
	copy(out, s.records)
	return out
}
