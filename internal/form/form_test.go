package form

import (
	"errors"
	"testing"

	"finadmin/internal/schema"
)

// cascadeSchema models Category -> Subcategory1 -> Subcategory2 the way the
// transactions screen wires them.
func cascadeSchema() schema.Schema {
	return schema.Schema{
		{Label: "Category", Name: "category", Type: schema.Select,
			Options: schema.Values("Utilities", "Groceries")},
		{Label: "Subcategory 1", Name: "subcategory1", Type: schema.Select,
			DependsOn: []string{"category"},
			Options: schema.Derived(func(draft schema.Record) []schema.Option {
				switch draft.String("category") {
				case "Utilities":
					return []schema.Option{{Value: "Power", Label: "Power"}, {Value: "Water", Label: "Water"}}
				case "Groceries":
					return []schema.Option{{Value: "Fresh", Label: "Fresh"}}
				}
				return nil
			})},
		{Label: "Subcategory 2", Name: "subcategory2", Type: schema.Select,
			DependsOn: []string{"category", "subcategory1"},
			Options: schema.Derived(func(draft schema.Record) []schema.Option {
				if draft.String("subcategory1") == "Power" {
					return []schema.Option{{Value: "Grid", Label: "Grid"}}
				}
				return nil
			})},
	}
}

func TestDefaults(t *testing.T) {
	s := schema.Schema{
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "Purpose", Name: "purpose", Type: schema.Select, Options: schema.Values("Residential", "Investment")},
	}
	d := Defaults(s)
	if d["name"] != "" {
		t.Fatalf("name default = %v", d["name"])
	}
	if d["purpose"] != "Residential" {
		t.Fatalf("purpose default = %v", d["purpose"])
	}
}

func TestCascadeReset(t *testing.T) {
	m := New(cascadeSchema())
	m.SetField("category", "Utilities")
	m.SetField("subcategory1", "Power")
	m.SetField("subcategory2", "Grid")

	// Parent change invalidates subcategory1, which transitively clears
	// subcategory2.
	m.SetField("category", "Groceries")
	if got := m.Value("subcategory1"); got != "" {
		t.Fatalf("subcategory1 = %q, want cleared", got)
	}
	if got := m.Value("subcategory2"); got != "" {
		t.Fatalf("subcategory2 = %q, want cleared", got)
	}
}

func TestCascadeKeepsValidValue(t *testing.T) {
	s := schema.Schema{
		{Label: "Category", Name: "category", Type: schema.Select, Options: schema.Values("A", "B")},
		{Label: "Child", Name: "child", Type: schema.Select,
			DependsOn: []string{"category"},
			Options: schema.Derived(func(schema.Record) []schema.Option {
				// Same list whatever the parent holds.
				return []schema.Option{{Value: "keep", Label: "keep"}}
			})},
	}
	m := New(s)
	m.SetField("child", "keep")
	m.SetField("category", "B")
	if got := m.Value("child"); got != "keep" {
		t.Fatalf("child = %q, want keep", got)
	}
}

func TestValidate(t *testing.T) {
	s := schema.Schema{{Label: "Name", Name: "name", Type: schema.Text}}
	m := New(s)
	err := m.Validate()
	var req *RequiredFieldError
	if !errors.As(err, &req) {
		t.Fatalf("expected RequiredFieldError, got %v", err)
	}
	if req.Field != "name" {
		t.Fatalf("field = %q", req.Field)
	}

	m.SetField("name", "   ")
	if err := m.Validate(); err == nil {
		t.Fatal("whitespace-only value should fail")
	}

	m.SetField("name", "Alice")
	if err := m.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestNewEditNormalizesDates(t *testing.T) {
	s := schema.Schema{
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "DOB", Name: "dob", Type: schema.Date},
	}
	rec := schema.Record{"id": float64(3), "name": "Alice", "dob": "1990-02-01T00:00:00Z"}
	m := NewEdit(s, rec)
	if got := m.Value("dob"); got != "1990-02-01" {
		t.Fatalf("dob = %q", got)
	}
	// Original record untouched.
	if rec["dob"] != "1990-02-01T00:00:00Z" {
		t.Fatalf("source record mutated: %v", rec["dob"])
	}
}
