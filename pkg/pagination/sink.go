package pagination

import "github.com/Sternrassler/buscador-adesoes/pkg/ata"

// Sink receives search output as it is produced.
type Sink interface {
	// Emit delivers a record that passed filtering and deduplication.
	Emit(rec ata.Record)

	// Progress reports that processed of total pages have completed.
	Progress(processed, total int)

	// PageFailed reports a page that could not be fetched. The search
	// continues without it.
	PageFailed(page int, err error)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are ignored.
type SinkFuncs struct {
	OnEmit       func(ata.Record)
	OnProgress   func(processed, total int)
	OnPageFailed func(page int, err error)
}

func (s SinkFuncs) Emit(rec ata.Record) {
	if s.OnEmit != nil {
		s.OnEmit(rec)
	}
}

func (s SinkFuncs) Progress(processed, total int) {
	if s.OnProgress != nil {
		s.OnProgress(processed, total)
	}
}

func (s SinkFuncs) PageFailed(page int, err error) {
	if s.OnPageFailed != nil {
		s.OnPageFailed(page, err)
	}
}
