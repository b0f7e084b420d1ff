// Package grid implements the state machine behind every admin screen: a
// collection of records fetched from the backend, viewed through a
// filter, sort and pagination pipeline, edited through a popup form and
// moved in and out via spreadsheet import/export.
package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"finadmin/internal/columns"
	"finadmin/internal/exchange"
	"finadmin/internal/form"
	"finadmin/internal/log"
	"finadmin/internal/query"
	"finadmin/internal/schema"
)

var (
	ErrNoOpenForm     = errors.New("no form is open")
	ErrRecordNotFound = errors.New("record not found in grid")
)

const defaultPageSize = 10

// Remote is the backend the grid reads and writes records through.
type Remote interface {
	List(ctx context.Context, collection string) ([]schema.Record, error)
	Create(ctx context.Context, collection string, record schema.Record) (schema.Record, error)
	Update(ctx context.Context, collection, id string, record schema.Record) (schema.Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// Transform post-processes fetched records, typically to attach display
// fields joined from other collections.
type Transform func(records []schema.Record) []schema.Record

// Config describes one screen.
type Config struct {
	Title    string
	Route    string
	Endpoint string // backend collection name
	IDField  string // defaults to "id"
	Fields   schema.Schema
	Columns  []columns.Column

	Transform         Transform
	ImportConcurrency int
}

// Grid holds the live state of one screen.
type Grid struct {
	cfg     Config
	remote  Remote
	columns *columns.Model
	logger  *log.Logger

	mu        sync.Mutex
	records   []schema.Record
	search    string
	criteria  []query.Criterion
	sortState query.SortState
	page      query.PageState

	form      *form.Model
	editingID string

	lockMu   sync.Mutex
	recLocks map[string]*sync.Mutex
}

// View is the derived, render-ready state of a grid.
type View struct {
	Title   string
	Route   string
	Columns []columns.Column
	Records []schema.Record

	Total      int
	Page       int
	TotalPages int
	PageSize   int
	PageSizes  []int
	Window     []int

	Sort     query.SortState
	Search   string
	Criteria []query.Criterion

	FormOpen  bool
	EditingID string
}

// New validates the configuration and builds an empty grid. Call Load to
// populate it.
func New(cfg Config, remote Remote, cols *columns.Model, logger *log.Logger) (*Grid, error) {
	if err := cfg.Fields.Validate(); err != nil {
		return nil, fmt.Errorf("screen %s: %w", cfg.Route, err)
	}
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	if cfg.ImportConcurrency < 1 {
		cfg.ImportConcurrency = 1
	}
	return &Grid{
		cfg:      cfg,
		remote:   remote,
		columns:  cols,
		logger:   logger.WithComponent(log.ComponentGrid).With(log.FieldScreen, cfg.Route),
		page:     query.PageState{Current: 1, Size: defaultPageSize},
		recLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Config returns the screen configuration the grid was built with.
func (g *Grid) Config() Config {
	return g.cfg
}

// Columns exposes the column visibility model for this screen.
func (g *Grid) Columns() *columns.Model {
	return g.columns
}

// Load fetches the collection from the backend. A fetch failure leaves the
// grid empty and usable; the screen renders with no rows instead of dying.
func (g *Grid) Load(ctx context.Context) {
	records, err := g.remote.List(ctx, g.cfg.Endpoint)
	if err != nil {
		g.logger.WarnContext(ctx, "fetch failed, rendering empty grid", log.FieldError, err)
		records = nil
	}
	if g.cfg.Transform != nil {
		records = g.cfg.Transform(records)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = records
	g.resort()
}

// View runs the filter, sort and pagination pipeline over the current
// records and returns the page to render.
func (g *Grid) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	filtered := g.filtered()
	total := len(filtered)
	totalPages := query.TotalPages(total, g.page.Size)
	g.page = query.Clamp(g.page, total)

	return View{
		Title:      g.cfg.Title,
		Route:      g.cfg.Route,
		Columns:    g.columns.Visible(),
		Records:    query.Paginate(filtered, g.page.Current, g.page.Size),
		Total:      total,
		Page:       g.page.Current,
		TotalPages: totalPages,
		PageSize:   g.page.Size,
		PageSizes:  query.PageSizes,
		Window:     query.Window(g.page.Current, totalPages),
		Sort:       g.sortState,
		Search:     g.search,
		Criteria:   g.criteria,
		FormOpen:   g.form != nil,
		EditingID:  g.editingID,
	}
}

// Search sets the simple text filter and jumps back to the first page.
func (g *Grid) Search(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.search = text
	g.page.Current = 1
}

// SetCriteria replaces the advanced filter criteria and jumps back to the
// first page.
func (g *Grid) SetCriteria(criteria []query.Criterion) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.criteria = criteria
	g.page.Current = 1
}

// ClearFilters drops both the simple search and the advanced criteria.
func (g *Grid) ClearFilters() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.search = ""
	g.criteria = nil
	g.page.Current = 1
}

// SortBy sorts on a field, toggling the direction when the field is
// already the active sort key.
func (g *Grid) SortBy(field string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sortState.Field == field {
		g.sortState.Order = g.sortState.Order.Toggle()
	} else {
		g.sortState = query.SortState{Field: field, Order: query.Asc}
	}
	g.resort()
}

// SetPage moves to the given page; out-of-range values clamp in View.
func (g *Grid) SetPage(page int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if page < 1 {
		page = 1
	}
	g.page.Current = page
}

// SetPageSize changes how many records a page holds and returns to the
// first page.
func (g *Grid) SetPageSize(size int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, allowed := range query.PageSizes {
		if size == allowed {
			g.page = query.PageState{Current: 1, Size: size}
			return
		}
	}
}

// OpenAdd opens the form pre-filled with field defaults.
func (g *Grid) OpenAdd() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.form = form.New(g.cfg.Fields)
	g.editingID = ""
}

// OpenEdit opens the form loaded with an existing record.
func (g *Grid) OpenEdit(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	record, ok := g.find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	g.form = form.NewEdit(g.cfg.Fields, record)
	g.editingID = id
	return nil
}

// Form returns the open form model, or nil when no form is open.
func (g *Grid) Form() *form.Model {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.form
}

// SetField writes one form field, cascading resets through dependent
// select fields.
func (g *Grid) SetField(name, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.form == nil {
		return ErrNoOpenForm
	}
	g.form.SetField(name, value)
	return nil
}

// CancelForm closes the form and discards the draft.
func (g *Grid) CancelForm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.form = nil
	g.editingID = ""
}

// Save validates the draft and writes it to the backend: a create when no
// record is being edited, an update otherwise. On any failure the form
// stays open with the draft intact.
func (g *Grid) Save(ctx context.Context) error {
	g.mu.Lock()
	if g.form == nil {
		g.mu.Unlock()
		return ErrNoOpenForm
	}
	if err := g.form.Validate(); err != nil {
		g.mu.Unlock()
		return err
	}
	record := g.form.Draft().Clone()
	id := g.editingID
	g.mu.Unlock()

	delete(record, g.cfg.IDField)

	var saved schema.Record
	var err error
	if id == "" {
		saved, err = g.remote.Create(ctx, g.cfg.Endpoint, record)
	} else {
		unlock := g.lockRecord(id)
		saved, err = g.remote.Update(ctx, g.cfg.Endpoint, id, record)
		unlock()
	}
	if err != nil {
		g.logger.ErrorContext(ctx, "save failed", log.FieldRecordID, id, log.FieldError, err)
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.applySaved(id, saved)
	g.resort()
	g.form = nil
	g.editingID = ""
	return nil
}

// Delete removes a record from the backend and from the grid.
func (g *Grid) Delete(ctx context.Context, id string) error {
	unlock := g.lockRecord(id)
	err := g.remote.Delete(ctx, g.cfg.Endpoint, id)
	unlock()
	if err != nil {
		g.logger.ErrorContext(ctx, "delete failed", log.FieldRecordID, id, log.FieldError, err)
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.records[:0]
	for _, record := range g.records {
		if record.String(g.cfg.IDField) != id {
			kept = append(kept, record)
		}
	}
	g.records = kept
	return nil
}

// Import writes spreadsheet rows to the backend, each row independently:
// rows with an id update, rows without create. A failing row is reported
// in its result and does not stop the others.
func (g *Grid) Import(ctx context.Context, rows []map[string]any) []exchange.RowResult {
	ops := exchange.ImportRows(rows, g.cfg.IDField)
	results := make([]exchange.RowResult, len(ops))
	saved := make([]schema.Record, len(ops))

	var eg errgroup.Group
	eg.SetLimit(g.cfg.ImportConcurrency)
	for i, op := range ops {
		eg.Go(func() error {
			results[i] = exchange.RowResult{Index: i, Action: op.Action, ID: op.ID}
			var rec schema.Record
			var err error
			switch op.Action {
			case exchange.ActionCreate:
				rec, err = g.remote.Create(ctx, g.cfg.Endpoint, op.Record)
				if err == nil {
					results[i].ID = rec.String(g.cfg.IDField)
				}
			case exchange.ActionUpdate:
				unlock := g.lockRecord(op.ID)
				rec, err = g.remote.Update(ctx, g.cfg.Endpoint, op.ID, op.Record)
				unlock()
			}
			if err != nil {
				g.logger.WarnContext(ctx, "import row failed",
					log.FieldRowIndex, i, log.FieldAction, string(op.Action), log.FieldError, err)
				results[i].Err = err
				return nil
			}
			saved[i] = rec
			return nil
		})
	}
	eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	for i, rec := range saved {
		if rec == nil {
			continue
		}
		g.applySaved(ops[i].ID, rec)
	}
	g.resort()
	return results
}

// Export renders the current filtered and sorted view (all pages) as a
// header row plus string cells, restricted to the visible columns.
func (g *Grid) Export() ([]string, [][]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return exchange.Table(g.filtered(), g.columns.Visible())
}

// TemplateHeaders returns just the header row, for empty import templates.
func (g *Grid) TemplateHeaders() []string {
	return exchange.Headers(g.columns.Possible())
}

// filtered applies simple then advanced filtering. Callers hold g.mu.
func (g *Grid) filtered() []schema.Record {
	out := query.SimpleFilter(g.records, g.search)
	return query.AdvancedFilter(out, g.cfg.Fields, g.criteria)
}

// resort re-applies the active sort in place. Callers hold g.mu.
func (g *Grid) resort() {
	query.Sort(g.records, g.sortState, g.cfg.Fields.TypeOf(g.sortState.Field))
}

func (g *Grid) find(id string) (schema.Record, bool) {
	for _, record := range g.records {
		if record.String(g.cfg.IDField) == id {
			return record, true
		}
	}
	return nil, false
}

// applySaved merges a backend response into the record list: replace by
// id after an update, append after a create. The screen transform runs
// over the saved record first, so computed columns and normalized dates
// render without a refresh. Callers hold g.mu.
func (g *Grid) applySaved(id string, saved schema.Record) {
	if saved.String(g.cfg.IDField) == "" && id != "" {
		saved[g.cfg.IDField] = id
	}
	if g.cfg.Transform != nil {
		if out := g.cfg.Transform([]schema.Record{saved}); len(out) > 0 {
			saved = out[0]
		}
	}
	if id == "" {
		g.records = append(g.records, saved)
		return
	}
	for i, record := range g.records {
		if record.String(g.cfg.IDField) == id {
			g.records[i] = saved
			return
		}
	}
	g.records = append(g.records, saved)
}

// lockRecord serializes backend writes per record id, so two concurrent
// saves of the same record cannot interleave.
func (g *Grid) lockRecord(id string) func() {
	g.lockMu.Lock()
	m, ok := g.recLocks[id]
	if !ok {
		m = &sync.Mutex{}
		g.recLocks[id] = m
	}
	g.lockMu.Unlock()
	m.Lock()
	return m.Unlock
}
