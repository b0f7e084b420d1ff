package server

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"finadmin/internal/columns"
	"finadmin/internal/exchange"
	"finadmin/internal/form"
	"finadmin/internal/grid"
	"finadmin/internal/log"
	"finadmin/internal/query"
	"finadmin/internal/schema"
)

type screenLink struct {
	Title  string
	Route  string
	Active bool
}

type fieldView struct {
	Field   schema.Field
	Value   string
	Options []schema.Option
}

type filterField struct {
	Name      string
	Label     string
	Operators []query.Operator
}

type columnView struct {
	Column columns.Column
	Staged bool
}

// rowView is one table row with display-formatted cells. Dates render as
// DD-Mon-YYYY here; export and editing keep the raw calendar date.
type rowView struct {
	ID    string
	Cells []string
}

type pageData struct {
	Title     string
	Screens   []screenLink
	View      grid.View
	Rows      []rowView
	FormTitle string
	Fields    []fieldView
	Filters   []filterField
	Operators []query.Operator
	Columns   []columnView
	Error     string
	Notice    string
}

func (s *Server) render(g *grid.Grid, w http.ResponseWriter, r *http.Request, errMsg, notice string) {
	cfg := g.Config()
	view := g.View()

	data := pageData{
		Title:   cfg.Title,
		View:    view,
		Error:   errMsg,
		Notice:  notice,
		Screens: make([]screenLink, 0, len(s.grids)),
	}
	for _, other := range s.grids {
		oc := other.Config()
		data.Screens = append(data.Screens, screenLink{
			Title:  oc.Title,
			Route:  oc.Route,
			Active: oc.Route == cfg.Route,
		})
	}

	for _, rec := range view.Records {
		row := rowView{ID: rec.String(cfg.IDField)}
		for _, c := range view.Columns {
			v := rec.String(c.Accessor)
			if cfg.Fields.TypeOf(c.Accessor) == schema.Date {
				v = schema.DisplayDate(v)
			}
			row.Cells = append(row.Cells, v)
		}
		data.Rows = append(data.Rows, row)
	}

	seen := make(map[query.Operator]bool)
	for _, f := range cfg.Fields {
		ops := query.OperatorsFor(f.Type)
		data.Filters = append(data.Filters, filterField{
			Name:      f.Name,
			Label:     f.Label,
			Operators: ops,
		})
		for _, op := range ops {
			if !seen[op] {
				seen[op] = true
				data.Operators = append(data.Operators, op)
			}
		}
	}

	cols := g.Columns()
	for _, c := range cols.Possible() {
		data.Columns = append(data.Columns, columnView{Column: c, Staged: cols.IsStaged(c.Accessor)})
	}

	if m := g.Form(); m != nil {
		if view.EditingID == "" {
			data.FormTitle = "Add New"
		} else {
			data.FormTitle = "Edit"
		}
		for _, f := range cfg.Fields {
			data.Fields = append(data.Fields, fieldView{
				Field:   f,
				Value:   m.Value(f.Name),
				Options: m.Options(f),
			})
		}
	}

	if err := s.templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "template execution failed",
			log.FieldScreen, cfg.Route, log.FieldError, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) redirect(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, g.Config().Route, http.StatusSeeOther)
}

func (s *Server) handleGrid(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	s.render(g, w, r, "", "")
}

func (s *Server) handleRefresh(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.Load(r.Context())
	s.redirect(g, w, r)
}

func (s *Server) handleSearch(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.Search(r.FormValue("q"))
	s.redirect(g, w, r)
}

// handleCriteria reads the advanced-search rows: parallel field, operator
// and value inputs, one triple per row. Rows without a field are skipped.
func (s *Server) handleCriteria(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	fields := r.Form["field"]
	operators := r.Form["operator"]
	values := r.Form["value"]

	var criteria []query.Criterion
	for i, field := range fields {
		if field == "" || i >= len(operators) || i >= len(values) {
			continue
		}
		criteria = append(criteria, query.Criterion{
			Field:    field,
			Operator: query.Operator(operators[i]),
			Value:    values[i],
		})
	}
	g.SetCriteria(criteria)
	s.redirect(g, w, r)
}

func (s *Server) handleClearFilters(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.ClearFilters()
	s.redirect(g, w, r)
}

func (s *Server) handleSort(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if field := r.FormValue("field"); field != "" {
		g.SortBy(field)
	}
	s.redirect(g, w, r)
}

func (s *Server) handlePage(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if page, err := strconv.Atoi(r.FormValue("page")); err == nil {
		g.SetPage(page)
	}
	s.redirect(g, w, r)
}

func (s *Server) handlePageSize(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if size, err := strconv.Atoi(r.FormValue("size")); err == nil {
		g.SetPageSize(size)
	}
	s.redirect(g, w, r)
}

func (s *Server) handleOpenAdd(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.OpenAdd()
	s.redirect(g, w, r)
}

func (s *Server) handleOpenEdit(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if err := g.OpenEdit(r.FormValue("id")); err != nil {
		s.render(g, w, r, err.Error(), "")
		return
	}
	s.redirect(g, w, r)
}

// handleSetField syncs the whole submitted draft, then re-applies the field
// the user actually changed so its dependents reset. The redirect re-renders
// the form with recomputed option lists.
func (s *Server) handleSetField(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if err := s.applyDraft(g, r); err != nil {
		s.render(g, w, r, err.Error(), "")
		return
	}
	if changed := r.FormValue("_changed"); changed != "" {
		if err := g.SetField(changed, r.FormValue(changed)); err != nil {
			s.render(g, w, r, err.Error(), "")
			return
		}
	}
	s.redirect(g, w, r)
}

// applyDraft writes every submitted schema field into the open form.
func (s *Server) applyDraft(g *grid.Grid, r *http.Request) error {
	for _, f := range g.Config().Fields {
		if values, ok := r.Form[f.Name]; ok && len(values) > 0 {
			if err := g.SetField(f.Name, values[0]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) handleSave(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	// Apply every submitted field before validating, so the draft matches
	// what the user sees.
	if err := s.applyDraft(g, r); err != nil {
		s.render(g, w, r, err.Error(), "")
		return
	}

	if err := g.Save(r.Context()); err != nil {
		var required *form.RequiredFieldError
		if errors.As(err, &required) {
			s.render(g, w, r, required.Error(), "")
			return
		}
		s.render(g, w, r, "Save failed: "+err.Error(), "")
		return
	}
	s.redirect(g, w, r)
}

func (s *Server) handleCancelForm(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.CancelForm()
	s.redirect(g, w, r)
}

func (s *Server) handleDelete(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	if err := g.Delete(r.Context(), id); err != nil {
		s.render(g, w, r, "Delete failed: "+err.Error(), "")
		return
	}
	s.redirect(g, w, r)
}

func (s *Server) handleColumnsToggle(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.Columns().Toggle(r.FormValue("accessor"))
	s.redirect(g, w, r)
}

func (s *Server) handleColumnsAll(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.Columns().SelectAll()
	s.redirect(g, w, r)
}

func (s *Server) handleColumnsNone(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.Columns().SelectNone()
	s.redirect(g, w, r)
}

func (s *Server) handleColumnsApply(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	if err := g.Columns().Apply(); err != nil {
		s.logger.WarnContext(r.Context(), "persist column selection failed",
			log.FieldScreen, g.Config().Route, log.FieldError, err)
	}
	s.redirect(g, w, r)
}

func (s *Server) handleColumnsCancel(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	g.Columns().Cancel()
	s.redirect(g, w, r)
}

// handleExport streams the current view as CSV or XLSX; template=1 downloads
// just the header row for bulk-import templates.
func (s *Server) handleExport(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(g.Config().Route, "/")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var headers []string
	var rows [][]string
	if r.URL.Query().Get("template") == "1" {
		headers = g.TemplateHeaders()
	} else {
		headers, rows = g.Export()
	}

	switch format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
		if err := exchange.WriteXLSX(w, name, headers, rows); err != nil {
			s.logger.ErrorContext(r.Context(), "xlsx export failed",
				log.FieldScreen, g.Config().Route, log.FieldError, err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
		if err := exchange.WriteCSV(w, headers, rows); err != nil {
			s.logger.ErrorContext(r.Context(), "csv export failed",
				log.FieldScreen, g.Config().Route, log.FieldError, err)
		}
	default:
		http.Error(w, "unsupported export format", http.StatusBadRequest)
	}
}

func (s *Server) handleImport(g *grid.Grid, w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.render(g, w, r, "Import failed: no file uploaded", "")
		return
	}
	defer file.Close()

	var rows []map[string]any
	switch strings.ToLower(path.Ext(header.Filename)) {
	case ".xlsx":
		rows, err = exchange.ReadXLSX(file)
	default:
		rows, err = exchange.ReadCSV(file)
	}
	if err != nil {
		s.render(g, w, r, "Import failed: "+err.Error(), "")
		return
	}

	results := g.Import(r.Context(), rows)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	notice := fmt.Sprintf("Imported %d of %d rows", len(results)-failed, len(results))
	if failed > 0 {
		notice += fmt.Sprintf(" (%d failed)", failed)
	}
	s.render(g, w, r, "", notice)
}
