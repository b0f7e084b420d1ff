package exchange

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"finadmin/internal/columns"
	"finadmin/internal/schema"
)

func exportColumns() []columns.Column {
	return []columns.Column{
		{Header: "Name", Accessor: "name"},
		{Header: "Amount", Accessor: "amount"},
	}
}

func TestExportRowsReflectsViewOrder(t *testing.T) {
	records := []schema.Record{
		{"name": "Water", "amount": float64(42), "hidden": "x"},
		{"name": "Rent", "amount": float64(1200)},
	}
	rows := ExportRows(records, exportColumns())
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0]["name"] != "Water" || rows[1]["name"] != "Rent" {
		t.Fatalf("export must keep view order: %v", rows)
	}
	if _, ok := rows[0]["hidden"]; ok {
		t.Fatal("non-column fields must not leak into export")
	}
}

// Exporting the same view twice yields identical output.
func TestExportIdempotent(t *testing.T) {
	records := []schema.Record{
		{"name": "A", "amount": float64(1)},
		{"name": "B", "amount": float64(2)},
	}
	h1, r1 := Table(records, exportColumns())
	h2, r2 := Table(records, exportColumns())
	if !reflect.DeepEqual(h1, h2) || !reflect.DeepEqual(r1, r2) {
		t.Fatal("repeated export differs")
	}
}

func TestTemplateRow(t *testing.T) {
	row := TemplateRow(exportColumns())
	if len(row) != 2 || row["name"] != "" || row["amount"] != "" {
		t.Fatalf("template row = %v", row)
	}
}

func TestImportRowsRouting(t *testing.T) {
	rows := []map[string]any{
		{"name": "New member", "dob": "1990-01-01"},
		{"id": float64(7), "name": "Existing", "dob": "1980-01-01"},
		{"id": "", "name": "Blank id"},
	}
	ops := ImportRows(rows, "id")
	if ops[0].Action != ActionCreate || ops[0].ID != "" {
		t.Fatalf("row without id should create: %+v", ops[0])
	}
	if ops[1].Action != ActionUpdate || ops[1].ID != "7" {
		t.Fatalf("row with id should update: %+v", ops[1])
	}
	if _, ok := ops[1].Record["id"]; ok {
		t.Fatal("id field must be stripped from the record body")
	}
	if ops[2].Action != ActionCreate {
		t.Fatalf("empty id should create: %+v", ops[2])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	headers := []string{"name", "amount"}
	rows := [][]string{{"Water", "42"}, {"Rent, Inc.", "1200"}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, headers, rows); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[1]["name"] != "Rent, Inc." || got[1]["amount"] != "1200" {
		t.Fatalf("row 1 = %v", got[1])
	}
}

func TestReadCSVShortRows(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("name,amount\nWater\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got[0]["amount"] != "" {
		t.Fatalf("short row should pad: %v", got[0])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, "bills", []string{"name"}, [][]string{{"Water"}})
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty workbook")
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"name", "amount"}
	rows := [][]string{{"Water", "42"}, {"Rent", "1200"}}
	if err := WriteXLSX(&buf, "bills", headers, rows); err != nil {
		t.Fatal(err)
	}

	got, err := ReadXLSX(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[0]["name"] != "Water" || got[1]["amount"] != "1200" {
		t.Fatalf("rows = %v", got)
	}
}
