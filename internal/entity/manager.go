package entity

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/cepip-console/internal/backend"
	"github.com/yndnr/cepip-console/internal/core/domain"
	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// API is the part of the backend client a Manager needs.
type API interface {
	ListRecords(ctx context.Context, table string, opts backend.ListOptions) (*domain.RecordPage, error)
	GetRecord(ctx context.Context, table, id string) (domain.Record, error)
	CreateRecord(ctx context.Context, table string, rec domain.Record) (domain.Record, error)
	UpdateRecord(ctx context.Context, table, id string, patch domain.Record) (domain.Record, error)
	DeleteRecord(ctx context.Context, table, id string) error
}

// ErrNoData is returned by Export when the table is empty.
var ErrNoData = errors.New("no data to export")

// Manager handles one entity kind.
type Manager struct {
	api API
	def Definition
	log logger.Logger
}

// NewManager creates a manager for def.
func NewManager(api API, def Definition, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Default()
	}
	return &Manager{api: api, def: def, log: log.With("entity", def.Name)}
}

// Definition returns the kind handled by m.
func (m *Manager) Definition() Definition { return m.def }

// List returns one page.
func (m *Manager) List(ctx context.Context, opts backend.ListOptions) (*domain.RecordPage, error) {
	return m.api.ListRecords(ctx, m.def.Table, opts)
}

// Get returns one row.
func (m *Manager) Get(ctx context.Context, id string) (domain.Record, error) {
	return m.api.GetRecord(ctx, m.def.Table, id)
}

// Create inserts rec. The primary key is assigned by the backend.
func (m *Manager) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if len(rec) == 0 {
		return nil, domain.ErrInvalidRequest.WithDetails("no fields given")
	}
	rec = maps.Clone(rec)
	delete(rec, m.def.IDField)
	out, err := m.api.CreateRecord(ctx, m.def.Table, rec)
	if err != nil {
		return nil, err
	}
	m.log.Info("record created", "id", Text(out[m.def.IDField]))
	return out, nil
}

// Update applies patch to row id.
func (m *Manager) Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error) {
	if len(patch) == 0 {
		return nil, domain.ErrInvalidRequest.WithDetails("no fields given")
	}
	patch = maps.Clone(patch)
	delete(patch, m.def.IDField)
	out, err := m.api.UpdateRecord(ctx, m.def.Table, id, patch)
	if err != nil {
		return nil, err
	}
	m.log.Info("record updated", "id", id)
	return out, nil
}

// Delete removes row id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.api.DeleteRecord(ctx, m.def.Table, id); err != nil {
		return err
	}
	m.log.Info("record deleted", "id", id)
	return nil
}

// Statistics computes the statistics block of one page, the way the
// listing shows them.
func (m *Manager) Statistics(ctx context.Context, opts backend.ListOptions) ([]Stat, error) {
	page, err := m.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if m.def.Stats == nil {
		return []Stat{count("total", "Total", len(page.Data)), count("registros", "Registros en la tabla", page.Pagination.Total)}, nil
	}
	return m.def.Stats(page.Data), nil
}

// ExportOptions tune Export.
type ExportOptions struct {
	// PageSize defaults to backend.MaxLimit.
	PageSize int
	// Concurrency bounds parallel page fetches; defaults to 4.
	Concurrency int
	// Progress is called after each fetched page.
	Progress func(done, total int)
}

// Export writes every row of the table to w as CSV and returns the
// number of rows written. Pages after the first are fetched concurrently
// and written in order.
func (m *Manager) Export(ctx context.Context, w io.Writer, opts ExportOptions) (int, error) {
	if opts.PageSize <= 0 || opts.PageSize > backend.MaxLimit {
		opts.PageSize = backend.MaxLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(int, int) {}
	}

	first, err := m.List(ctx, backend.ListOptions{Page: 1, Limit: opts.PageSize})
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", m.def.Plural, err)
	}
	pages := max(first.Pagination.Pages, 1)
	progress(1, pages)

	results := make([][]domain.Record, pages)
	results[0] = first.Data

	if pages > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)

		var mu sync.Mutex
		fetched := 1
		for p := 2; p <= pages; p++ {
			g.Go(func() error {
				page, err := m.List(gctx, backend.ListOptions{Page: p, Limit: opts.PageSize})
				if err != nil {
					return fmt.Errorf("page %d: %w", p, err)
				}
				results[p-1] = page.Data

				mu.Lock()
				fetched++
				progress(fetched, pages)
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return 0, fmt.Errorf("export %s: %w", m.def.Plural, err)
		}
	}

	var rows []domain.Record
	for _, r := range results {
		rows = append(rows, r...)
	}
	if len(rows) == 0 {
		return 0, ErrNoData
	}

	columns := m.def.Export
	if columns == nil {
		columns = genericColumns(first.Columns, rows)
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	line := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			line[i] = c.Value(r)
		}
		if err := cw.Write(line); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}

	m.log.Info("export finished", "rows", len(rows), "pages", pages)
	return len(rows), nil
}
