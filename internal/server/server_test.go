package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"finadmin/internal/columns"
	"finadmin/internal/grid"
	"finadmin/internal/log"
	"finadmin/internal/schema"
)

type fakeRemote struct {
	mu      sync.Mutex
	nextID  int
	records map[string]schema.Record
	order   []string
}

func newFakeRemote(records ...schema.Record) *fakeRemote {
	r := &fakeRemote{records: make(map[string]schema.Record)}
	for _, rec := range records {
		id := rec.String("id")
		r.records[id] = rec
		r.order = append(r.order, id)
		r.nextID++
	}
	return r
}

func (r *fakeRemote) List(ctx context.Context, collection string) ([]schema.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].Clone())
	}
	return out, nil
}

func (r *fakeRemote) Create(ctx context.Context, collection string, record schema.Record) (schema.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	saved := record.Clone()
	saved["id"] = fmt.Sprintf("%d", r.nextID)
	id := saved.String("id")
	r.records[id] = saved
	r.order = append(r.order, id)
	return saved.Clone(), nil
}

func (r *fakeRemote) Update(ctx context.Context, collection, id string, record schema.Record) (schema.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return nil, errors.New("no such record")
	}
	saved := record.Clone()
	saved["id"] = id
	r.records[id] = saved
	return saved.Clone(), nil
}

func (r *fakeRemote) Delete(ctx context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	kept := r.order[:0]
	for _, oid := range r.order {
		if oid != id {
			kept = append(kept, oid)
		}
	}
	r.order = kept
	return nil
}

func testServer(t *testing.T, records ...schema.Record) (*httptest.Server, *fakeRemote) {
	t.Helper()
	s := schema.Schema{
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "Amount", Name: "amount", Type: schema.Number},
		{Label: "Due", Name: "due", Type: schema.Date},
	}
	remote := newFakeRemote(records...)
	cols := columns.NewModel("/bills", columns.FromSchema(s), columns.NewMemStore())
	g, err := grid.New(grid.Config{
		Title:    "Bills",
		Route:    "/bills",
		Endpoint: "bills",
		Fields:   s,
		Columns:  columns.FromSchema(s),
	}, remote, cols, log.New(log.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	g.Load(context.Background())

	srv, err := NewServer(":0", []*grid.Grid{g}, log.New(log.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, remote
}

// noRedirect returns a client that surfaces 3xx responses instead of
// following them.
func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func postForm(t *testing.T, url string, form url.Values) *http.Response {
	t.Helper()
	resp, err := noRedirect().PostForm(url, form)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHomeRedirectsToFirstScreen(t *testing.T) {
	ts, _ := testServer(t)
	resp, err := noRedirect().Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/bills" {
		t.Fatalf("Location = %q, want /bills", loc)
	}
}

func TestGridPageRendersRecords(t *testing.T) {
	ts, _ := testServer(t,
		schema.Record{"id": "1", "name": "Water", "amount": "45.50", "due": "2024-03-01"},
		schema.Record{"id": "2", "name": "Power", "amount": "120", "due": "2024-03-15"},
	)
	body := get(t, ts.URL+"/bills")
	for _, want := range []string{"Bills", "Water", "Power", "45.50"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestSearchFiltersAndRedirects(t *testing.T) {
	ts, _ := testServer(t,
		schema.Record{"id": "1", "name": "Water"},
		schema.Record{"id": "2", "name": "Power"},
	)
	resp := postForm(t, ts.URL+"/bills/search", url.Values{"q": {"wat"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}

	body := get(t, ts.URL+"/bills")
	if !strings.Contains(body, "Water") {
		t.Error("filtered page missing matching record")
	}
	if strings.Contains(body, "Power") {
		t.Error("filtered page still shows non-matching record")
	}
}

func TestSortRedirects(t *testing.T) {
	ts, _ := testServer(t,
		schema.Record{"id": "1", "name": "Zed"},
		schema.Record{"id": "2", "name": "Alpha"},
	)
	postForm(t, ts.URL+"/bills/sort", url.Values{"field": {"name"}})

	body := get(t, ts.URL+"/bills")
	if strings.Index(body, "Alpha") > strings.Index(body, "Zed") {
		t.Error("records not sorted ascending by name")
	}
}

func TestAddFormRendersAndSaves(t *testing.T) {
	ts, remote := testServer(t)

	postForm(t, ts.URL+"/bills/add", nil)
	body := get(t, ts.URL+"/bills")
	if !strings.Contains(body, "Add New") {
		t.Fatal("popup not rendered after add")
	}

	resp := postForm(t, ts.URL+"/bills/save", url.Values{
		"name":   {"Gas"},
		"amount": {"30"},
		"due":    {"2024-04-01"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("save status = %d, want 303", resp.StatusCode)
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.records) != 1 {
		t.Fatalf("backend has %d records, want 1", len(remote.records))
	}
}

func TestSaveValidationKeepsFormOpen(t *testing.T) {
	ts, _ := testServer(t)

	postForm(t, ts.URL+"/bills/add", nil)
	resp := postForm(t, ts.URL+"/bills/save", url.Values{"name": {"  "}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 re-render", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Name is required") {
		t.Error("validation message not rendered")
	}
	if !strings.Contains(string(body), "Add New") {
		t.Error("form closed after validation failure")
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	ts, remote := testServer(t, schema.Record{"id": "1", "name": "Water"})

	resp := postForm(t, ts.URL+"/bills/delete", url.Values{"id": {"1"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.records) != 0 {
		t.Fatalf("backend has %d records, want 0", len(remote.records))
	}
}

func TestExportCSV(t *testing.T) {
	ts, _ := testServer(t, schema.Record{"id": "1", "name": "Water", "amount": "45"})

	resp, err := http.Get(ts.URL + "/bills/export?format=csv")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("Content-Type = %q, want text/csv", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "bills.csv") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	got := string(body)
	if !strings.HasPrefix(got, "name,amount,due") {
		t.Errorf("header row = %q", strings.SplitN(got, "\n", 2)[0])
	}
	if !strings.Contains(got, "Water,45") {
		t.Error("record row missing from export")
	}
}

func TestExportTemplateHasHeadersOnly(t *testing.T) {
	ts, _ := testServer(t, schema.Record{"id": "1", "name": "Water"})

	resp, err := http.Get(ts.URL + "/bills/export?template=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(body)); got != "name,amount,due" {
		t.Fatalf("template body = %q", got)
	}
}

func TestImportReportsOutcome(t *testing.T) {
	ts, remote := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "bills.csv")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, "name,amount\nGas,30\nWater,45\n")
	mw.Close()

	resp, err := http.Post(ts.URL+"/bills/import", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Imported 2 of 2 rows") {
		t.Errorf("notice missing, body has %q", string(body)[:min(200, len(body))])
	}

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.records) != 2 {
		t.Fatalf("backend has %d records, want 2", len(remote.records))
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := testServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts, _ := testServer(t)
	resp, err := http.Get(ts.URL + "/bills")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("Content-Security-Policy"); got == "" {
		t.Error("Content-Security-Policy missing")
	}
}
