// Package search runs one adhesion lookup end to end: it builds the query,
// loads the sphere table when needed, drives the paginated fetch and maps
// the outcome to user-visible status.
package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
	"github.com/Sternrassler/buscador-adesoes/pkg/pagination"
	"github.com/Sternrassler/buscador-adesoes/pkg/sphere"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNoItem is returned when a search is started without an item code.
var ErrNoItem = errors.New("no item selected")

// Presenter is where a search writes its output.
type Presenter interface {
	Record(rec ata.Record)
	Status(st Status)
}

// SphereLoader supplies the unit-to-sphere table for federal-only searches.
type SphereLoader interface {
	SphereTable(ctx context.Context) (sphere.Table, error)
}

// Request is what the user selected.
type Request struct {
	Kind        ata.ItemKind
	Code        string
	FederalOnly bool
}

// Outcome summarizes a finished search.
type Outcome struct {
	Query   ata.Query
	Records []ata.RawRecord
	Status  StatusKind
	Err     error
}

// Config holds orchestrator configuration.
type Config struct {
	// PageSize per item kind
	PageSize map[ata.ItemKind]int
	// WindowDays is how far back dataVigenciaInicialMin goes.
	WindowDays int
	// Now is the clock used for the date window.
	Now func() time.Time
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		PageSize: map[ata.ItemKind]int{
			ata.KindMaterial: 500,
			ata.KindService:  500,
		},
		WindowDays: 360,
		Now:        time.Now,
	}
}

const fallbackPageSize = 120

// Orchestrator wires a fetcher, a sphere loader and a presenter.
type Orchestrator struct {
	fetcher *pagination.Fetcher
	spheres SphereLoader
	config  Config
	logger  zerolog.Logger
}

// New creates an orchestrator. spheres may be nil if federal-only searches
// are never requested.
func New(fetcher *pagination.Fetcher, spheres SphereLoader, cfg Config) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultConfig().WindowDays
	}

	return &Orchestrator{
		fetcher: fetcher,
		spheres: spheres,
		config:  cfg,
		logger:  log.With().Str("component", "search").Logger(),
	}
}

// BuildQuery computes the query for req with a date window ending today.
func (o *Orchestrator) BuildQuery(req Request) ata.Query {
	now := o.config.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	size, ok := o.config.PageSize[req.Kind]
	if !ok || size <= 0 {
		size = fallbackPageSize
	}

	return ata.Query{
		Kind:     req.Kind,
		Code:     strings.TrimSpace(req.Code),
		Start:    today.AddDate(0, 0, -o.config.WindowDays),
		End:      today,
		PageSize: size,
	}
}

// Run executes one search. It never returns an error directly; failures are
// reported to p and recorded in the Outcome.
func (o *Orchestrator) Run(ctx context.Context, req Request, p Presenter) Outcome {
	q := o.BuildQuery(req)
	out := Outcome{Query: q}

	if q.Code == "" {
		p.Status(Status{Kind: StatusFailure, Message: MsgNoItem})
		out.Status, out.Err = StatusFailure, ErrNoItem
		return out
	}

	logger := o.logger.With().
		Str("item_kind", string(q.Kind)).
		Str("item_code", q.Code).
		Bool("federal_only", req.FederalOnly).
		Logger()

	var filter pagination.Filter
	if req.FederalOnly {
		table, err := o.loadSpheres(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Sphere table unavailable")
			p.Status(Status{Kind: StatusFailure, Message: MsgUnavailable})
			out.Status, out.Err = StatusFailure, err
			return out
		}
		filter = func(r ata.RawRecord) bool {
			return sphere.IsFederal(r, table)
		}
	}

	logger.Info().Str("query", q.String()).Msg("Search started")
	p.Status(Status{Kind: StatusInProgress, Message: MsgStarting})

	records, err := o.fetcher.FetchAll(ctx, q, filter, presenterSink{p})
	out.Records = records
	if err != nil {
		logger.Error().Err(err).Int("records", len(records)).Msg("Search failed")
		p.Status(Status{Kind: StatusFailure, Message: MsgUnavailable})
		out.Status, out.Err = StatusFailure, err
		return out
	}

	logger.Info().Int("records", len(records)).Msg("Search complete")
	p.Status(Status{Kind: StatusSuccess, Message: MsgComplete})
	out.Status = StatusSuccess
	if len(records) == 0 {
		p.Status(Status{Kind: StatusEmpty, Message: MsgNoResults})
	}
	return out
}

func (o *Orchestrator) loadSpheres(ctx context.Context) (sphere.Table, error) {
	if o.spheres == nil {
		return nil, errors.New("no sphere table configured")
	}
	return o.spheres.SphereTable(ctx)
}

// presenterSink turns fetcher callbacks into presenter calls.
type presenterSink struct {
	p Presenter
}

func (s presenterSink) Emit(rec ata.Record) {
	s.p.Record(rec)
}

func (s presenterSink) Progress(processed, total int) {
	s.p.Status(progressStatus(processed, total))
}

func (s presenterSink) PageFailed(page int, err error) {
	s.p.Status(Status{Kind: StatusWarning, Message: MsgPageFailed})
}
