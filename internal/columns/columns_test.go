package columns

import (
	"path/filepath"
	"sync"
	"testing"

	"finadmin/internal/schema"
)

func testColumns() []Column {
	return []Column{
		{Header: "Name", Accessor: "name", Sortable: true},
		{Header: "Category", Accessor: "category", Sortable: true},
		{Header: "Amount", Accessor: "amount", Sortable: true},
	}
}

func TestFromSchema(t *testing.T) {
	s := schema.Schema{
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "DOB", Name: "dob", Type: schema.Date},
	}
	cols := FromSchema(s)
	if len(cols) != 2 || cols[0].Accessor != "name" || cols[1].Header != "DOB" {
		t.Fatalf("cols = %v", cols)
	}
}

func TestVisibleKeepsDeclaredOrder(t *testing.T) {
	m := NewModel("/bills", testColumns(), nil)
	m.SetSelection([]string{"amount", "name"})
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	vis := m.Visible()
	if len(vis) != 2 || vis[0].Accessor != "name" || vis[1].Accessor != "amount" {
		t.Fatalf("visibility must not reorder columns: %v", vis)
	}
}

func TestToggleApplyCancel(t *testing.T) {
	m := NewModel("/bills", testColumns(), nil)

	m.Toggle("category")
	if m.IsVisible("category") != true {
		t.Fatal("toggle must not commit before Apply")
	}
	if m.IsStaged("category") != false {
		t.Fatal("staged state should reflect the toggle")
	}
	m.Cancel()
	if m.IsStaged("category") != true {
		t.Fatal("cancel should discard staged changes")
	}

	m.Toggle("category")
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	if m.IsVisible("category") {
		t.Fatal("apply should commit the staged hide")
	}
}

func TestSelectAllNone(t *testing.T) {
	m := NewModel("/bills", testColumns(), nil)
	m.SelectNone()
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	if len(m.Visible()) != 0 {
		t.Fatalf("expected no visible columns, got %v", m.Visible())
	}
	m.SelectAll()
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	if len(m.Visible()) != 3 {
		t.Fatalf("expected all columns, got %v", m.Visible())
	}
}

func TestUnknownAccessorIgnored(t *testing.T) {
	m := NewModel("/bills", testColumns(), nil)
	m.Toggle("nope")
	m.SetSelection([]string{"name", "ghost"})
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	vis := m.Visible()
	if len(vis) != 1 || vis[0].Accessor != "name" {
		t.Fatalf("unknown accessors must be dropped: %v", vis)
	}
}

func TestConcurrentToggleAndRead(t *testing.T) {
	m := NewModel("/bills", testColumns(), NewMemStore())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				switch n {
				case 0:
					m.Toggle("category")
				case 1:
					m.IsStaged("category")
					m.IsVisible("amount")
				case 2:
					m.Visible()
				case 3:
					if j%50 == 0 {
						if err := m.Apply(); err != nil {
							t.Error(err)
						}
					}
					m.SelectAll()
				}
			}
		}(i)
	}
	wg.Wait()

	m.SelectAll()
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	if len(m.Visible()) != 3 {
		t.Fatalf("final selection should be all columns, got %v", m.Visible())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	m := NewModel("/bills", testColumns(), store)
	m.SetSelection([]string{"name", "amount"})
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}

	// Remount restores the persisted selection for the same route.
	m2 := NewModel("/bills", testColumns(), store)
	if m2.IsVisible("category") {
		t.Fatal("persisted hide lost on remount")
	}
	if !m2.IsVisible("name") || !m2.IsVisible("amount") {
		t.Fatal("persisted selection lost on remount")
	}

	// Other routes are untouched.
	m3 := NewModel("/incomes", testColumns(), store)
	if len(m3.Visible()) != 3 {
		t.Fatal("unrelated route should default to all visible")
	}
}
