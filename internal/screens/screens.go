// Package screens declares the nine admin screens. Each screen is a thin
// grid.Config: a field list, a backend collection and optionally custom
// columns or a fetch transform. Everything else is shared grid behavior.
package screens

import (
	"context"
	"fmt"

	"finadmin/internal/columns"
	"finadmin/internal/grid"
	"finadmin/internal/log"
	"finadmin/internal/schema"
)

// Reference holds the collections other screens join against for select
// options and display labels.
type Reference struct {
	Properties []schema.Record
	Accounts   []schema.Record
	Categories []schema.Record
}

// LoadReference fetches the lookup collections. Failures degrade to empty
// option lists rather than blocking startup.
func LoadReference(ctx context.Context, remote grid.Remote, logger *log.Logger) Reference {
	var ref Reference
	for _, c := range []struct {
		name string
		dst  *[]schema.Record
	}{
		{"properties", &ref.Properties},
		{"accounts", &ref.Accounts},
		{"categories", &ref.Categories},
	} {
		records, err := remote.List(ctx, c.name)
		if err != nil {
			logger.WarnContext(ctx, "reference fetch failed",
				log.FieldCollection, c.name, log.FieldError, err)
			continue
		}
		*c.dst = records
	}
	return ref
}

// All returns every screen configuration, in sidebar order.
func All(ref Reference) []grid.Config {
	return []grid.Config{
		Members(),
		Properties(),
		Accounts(),
		Bills(),
		Incomes(ref),
		Transactions(ref),
		Purchases(ref),
		PurchasedItems(),
		Categories(),
	}
}

func Members() grid.Config {
	fields := schema.Schema{
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "Date of Birth", Name: "dob", Type: schema.Date},
	}
	return grid.Config{
		Title:    "Members",
		Route:    "/members",
		Endpoint: "members",
		Fields:   fields,
		Columns:  columns.FromSchema(fields),
	}
}

func Properties() grid.Config {
	fields := schema.Schema{
		{Label: "Address", Name: "address", Type: schema.Text},
		{Label: "Suburb", Name: "suburb", Type: schema.Text},
		{Label: "Purpose", Name: "purpose", Type: schema.Select,
			Options: schema.Values("Residential", "Investment")},
	}
	return grid.Config{
		Title:    "Properties",
		Route:    "/properties",
		Endpoint: "properties",
		Fields:   fields,
		Columns:  columns.FromSchema(fields),
	}
}

func Accounts() grid.Config {
	fields := schema.Schema{
		{Label: "Type", Name: "type", Type: schema.Text},
		{Label: "BSB", Name: "bsb", Type: schema.Text},
		{Label: "Account No.", Name: "accountno", Type: schema.Text},
		{Label: "Provider", Name: "provider", Type: schema.Text},
		{Label: "Product", Name: "productname", Type: schema.Text},
		{Label: "Balance", Name: "balance", Type: schema.Number},
		{Label: "Interest %", Name: "interestrate", Type: schema.Number},
		{Label: "EMI", Name: "emi", Type: schema.Number},
	}
	return grid.Config{
		Title:    "Accounts",
		Route:    "/accounts",
		Endpoint: "accounts",
		Fields:   fields,
		Columns:  columns.FromSchema(fields),
	}
}

func Bills() grid.Config {
	fields := schema.Schema{
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "Category", Name: "category", Type: schema.Text},
		{Label: "Subcategory1", Name: "subcategory1", Type: schema.Text},
		{Label: "Subcategory2", Name: "subcategory2", Type: schema.Text},
		{Label: "Subcategory3", Name: "subcategory3", Type: schema.Text},
		{Label: "Provider", Name: "provider", Type: schema.Text},
		{Label: "Frequency", Name: "frequency", Type: schema.Select,
			Options: schema.Values("Weekly", "Fortnightly", "Monthly", "Yearly")},
		{Label: "Amount", Name: "amount", Type: schema.Number},
		{Label: "Start Date", Name: "startdate", Type: schema.Date},
		{Label: "End Date", Name: "enddate", Type: schema.Date},
		{Label: "Account ID", Name: "accountid", Type: schema.Number},
		{Label: "Property ID", Name: "propertyid", Type: schema.Number},
	}
	return grid.Config{
		Title:     "Bills",
		Route:     "/bills",
		Endpoint:  "bills",
		Fields:    fields,
		Columns:   columns.FromSchema(fields),
		Transform: normalizeDates(fields),
	}
}

func Incomes(ref Reference) grid.Config {
	propertyOpts := propertyOptions(ref.Properties)
	accountOpts := accountOptions(ref.Accounts)

	fields := schema.Schema{
		{Label: "Property", Name: "propertyid", Type: schema.Select,
			Options: schema.Static(propertyOpts...)},
		{Label: "Account", Name: "accountid", Type: schema.Select,
			Options: schema.Static(accountOpts...)},
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "Category", Name: "category", Type: schema.Text},
		{Label: "Subcat1", Name: "subcategory1", Type: schema.Text},
		{Label: "Subcat2", Name: "subcategory2", Type: schema.Text},
		{Label: "Subcat3", Name: "subcategory3", Type: schema.Text},
		{Label: "Frequency", Name: "frequency", Type: schema.Select,
			Options: schema.Values("Weekly", "Fortnightly", "Monthly", "Yearly")},
		{Label: "Amount", Name: "amount", Type: schema.Number},
		{Label: "Start Date", Name: "startdate", Type: schema.Date},
		{Label: "End Date", Name: "enddate", Type: schema.Date},
	}

	// The table shows resolved labels, not the raw foreign ids.
	cols := []columns.Column{
		{Header: "Property", Accessor: "propertyLabel", Sortable: true},
		{Header: "Account", Accessor: "accountLabel", Sortable: true},
		{Header: "Name", Accessor: "name", Sortable: true},
		{Header: "Category", Accessor: "category", Sortable: true},
		{Header: "Subcat1", Accessor: "subcategory1"},
		{Header: "Subcat2", Accessor: "subcategory2"},
		{Header: "Subcat3", Accessor: "subcategory3"},
		{Header: "Freq", Accessor: "frequency"},
		{Header: "Amount", Accessor: "amount", Sortable: true},
		{Header: "Start", Accessor: "startdate", Sortable: true},
		{Header: "End", Accessor: "enddate", Sortable: true},
	}

	dates := normalizeDates(fields)
	transform := func(records []schema.Record) []schema.Record {
		records = dates(records)
		for _, rec := range records {
			rec["propertyLabel"] = optionLabel(propertyOpts, rec.String("propertyid"))
			rec["accountLabel"] = optionLabel(accountOpts, rec.String("accountid"))
		}
		return records
	}

	return grid.Config{
		Title:     "Incomes",
		Route:     "/incomes",
		Endpoint:  "incomes",
		Fields:    fields,
		Columns:   cols,
		Transform: transform,
	}
}

func Transactions(ref Reference) grid.Config {
	fields := schema.Schema{
		{Label: "Bill ID", Name: "billid", Type: schema.Number},
		{Label: "Purchase ID", Name: "purchaseid", Type: schema.Number},
		{Label: "Name", Name: "name", Type: schema.Text},
		{Label: "Direction", Name: "direction", Type: schema.Select,
			Options: schema.Values("Debit", "Credit")},
		{Label: "Status", Name: "status", Type: schema.Select,
			Options: schema.Values("Pending", "Cleared")},
		{Label: "Category", Name: "category", Type: schema.Select,
			Options: schema.Static(categoryOptions(ref.Categories)...)},
		{Label: "Subcategory 1", Name: "subcategory1", Type: schema.Select,
			Options: subcategoryOptions(ref.Categories, "subcategory1", "category"),
			DependsOn: []string{"category"}},
		{Label: "Subcategory 2", Name: "subcategory2", Type: schema.Select,
			Options: subcategoryOptions(ref.Categories, "subcategory2", "category", "subcategory1"),
			DependsOn: []string{"category", "subcategory1"}},
		{Label: "Subcategory 3", Name: "subcategory3", Type: schema.Select,
			Options: subcategoryOptions(ref.Categories, "subcategory3", "category", "subcategory1", "subcategory2"),
			DependsOn: []string{"category", "subcategory1", "subcategory2"}},
		{Label: "Provider", Name: "provider", Type: schema.Text},
		{Label: "Amount", Name: "amount", Type: schema.Number},
		{Label: "Transaction Date", Name: "transactiondate", Type: schema.Date},
		{Label: "Account ID", Name: "accountid", Type: schema.Number},
		{Label: "Property ID", Name: "propertyid", Type: schema.Number},
	}
	return grid.Config{
		Title:     "Transactions",
		Route:     "/transactions",
		Endpoint:  "transactions",
		Fields:    fields,
		Columns:   columns.FromSchema(fields),
		Transform: normalizeDates(fields),
	}
}

func Purchases(ref Reference) grid.Config {
	fields := schema.Schema{
		{Label: "Transaction ID", Name: "transactionid", Type: schema.Number},
		{Label: "Member ID", Name: "memberid", Type: schema.Number},
		{Label: "Provider", Name: "provider", Type: schema.Text},
		{Label: "Address", Name: "address", Type: schema.Text},
		{Label: "Category", Name: "category", Type: schema.Select,
			Options: schema.Static(categoryOptions(ref.Categories)...)},
		{Label: "Subcat1", Name: "subcategory1", Type: schema.Select,
			Options: subcategoryOptions(ref.Categories, "subcategory1", "category"),
			DependsOn: []string{"category"}},
		{Label: "Subcat2", Name: "subcategory2", Type: schema.Select,
			Options: subcategoryOptions(ref.Categories, "subcategory2", "category", "subcategory1"),
			DependsOn: []string{"category", "subcategory1"}},
		{Label: "Subcat3", Name: "subcategory3", Type: schema.Select,
			Options: subcategoryOptions(ref.Categories, "subcategory3", "category", "subcategory1", "subcategory2"),
			DependsOn: []string{"category", "subcategory1", "subcategory2"}},
		{Label: "Account ID", Name: "accountid", Type: schema.Number},
		{Label: "Purchase Date", Name: "purchasedate", Type: schema.Date},
		{Label: "Amount", Name: "amount", Type: schema.Number},
	}
	return grid.Config{
		Title:     "Purchases",
		Route:     "/purchases",
		Endpoint:  "purchases",
		Fields:    fields,
		Columns:   columns.FromSchema(fields),
		Transform: normalizeDates(fields),
	}
}

func PurchasedItems() grid.Config {
	fields := schema.Schema{
		{Label: "Purchase ID", Name: "purchaseid", Type: schema.Number},
		{Label: "Item Name", Name: "itemname", Type: schema.Text},
		{Label: "Item Make", Name: "itemmake", Type: schema.Text},
		{Label: "Volume Units", Name: "volunits", Type: schema.Text},
		{Label: "Quantity", Name: "qty", Type: schema.Number},
		{Label: "Price", Name: "price", Type: schema.Number},
		{Label: "Cost/Unit", Name: "costperunit", Type: schema.Number},
	}
	return grid.Config{
		Title:    "Purchased Items",
		Route:    "/purchaseditems",
		Endpoint: "purchaseditems",
		Fields:   fields,
		Columns:  columns.FromSchema(fields),
	}
}

func Categories() grid.Config {
	fields := schema.Schema{
		{Label: "Category", Name: "category", Type: schema.Text},
		{Label: "Subcat1", Name: "subcategory1", Type: schema.Text},
		{Label: "Subcat2", Name: "subcategory2", Type: schema.Text},
		{Label: "Subcat3", Name: "subcategory3", Type: schema.Text},
	}
	return grid.Config{
		Title:    "Categories",
		Route:    "/categories",
		Endpoint: "categories",
		Fields:   fields,
		Columns:  columns.FromSchema(fields),
	}
}

// normalizeDates returns a transform truncating every date field to its
// calendar-date form, so fetched timestamps render and edit cleanly.
func normalizeDates(s schema.Schema) grid.Transform {
	return func(records []schema.Record) []schema.Record {
		out := make([]schema.Record, len(records))
		for i, rec := range records {
			out[i] = schema.NormalizeDates(s, rec)
		}
		return out
	}
}

func propertyOptions(properties []schema.Record) []schema.Option {
	opts := []schema.Option{{Value: "0", Label: "None"}}
	for _, p := range properties {
		opts = append(opts, schema.Option{
			Value: p.String("id"),
			Label: fmt.Sprintf("%s, %s", p.String("address"), p.String("suburb")),
		})
	}
	return opts
}

func accountOptions(accounts []schema.Record) []schema.Option {
	opts := []schema.Option{{Value: "0", Label: "None"}}
	for _, a := range accounts {
		opts = append(opts, schema.Option{
			Value: a.String("id"),
			Label: fmt.Sprintf("%s - %s", a.String("provider"), a.String("accountno")),
		})
	}
	return opts
}

func optionLabel(opts []schema.Option, value string) string {
	if value == "" {
		value = "0"
	}
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return "None"
}

// categoryOptions lists the distinct top-level categories, in first-seen
// order.
func categoryOptions(cats []schema.Record) []schema.Option {
	return uniqueOptions(cats, "category", nil)
}

// subcategoryOptions builds a derived option source for one taxonomy level:
// the distinct values of level across the category rows matching every
// parent field already chosen in the draft.
func subcategoryOptions(cats []schema.Record, level string, parents ...string) schema.Options {
	return schema.Derived(func(draft schema.Record) []schema.Option {
		match := make(map[string]string, len(parents))
		for _, p := range parents {
			match[p] = draft.String(p)
		}
		return uniqueOptions(cats, level, match)
	})
}

func uniqueOptions(cats []schema.Record, field string, match map[string]string) []schema.Option {
	var opts []schema.Option
	seen := map[string]bool{}
	for _, rec := range cats {
		ok := true
		for k, v := range match {
			if rec.String(k) != v {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		v := rec.String(field)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		opts = append(opts, schema.Option{Value: v, Label: v})
	}
	return opts
}
