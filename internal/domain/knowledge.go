package domain

// Record is one row of a knowledge-base table. Values are keyed by column name;
// the ID column is stored separately and always comes first.
type Record struct {
	ID     string
	Values map[string]string
}

// Get returns the value of a column, or "" when absent.
func (r Record) Get(column string) string {
	if column == "id" {
		return r.ID
	}
	return r.Values[column]
}

// Table is a flat knowledge-base table. Records are independent observations
// over the document text and carry no cross references.
type Table struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
	Records     []Record `json:"records"`
}

// Row returns the values of a record in column order, starting with the id.
func (t *Table) Row(r Record) []string {
	row := make([]string, 0, len(t.Columns)+1)
	row = append(row, r.ID)
	for _, c := range t.Columns {
		row = append(row, r.Values[c])
	}
	return row
}

// Header returns the CSV header row: "id" followed by the columns.
func (t *Table) Header() []string {
	return append([]string{"id"}, t.Columns...)
}

// Maps returns the records as ordered-key-agnostic maps for JSON output.
func (t *Table) Maps() []map[string]string {
	out := make([]map[string]string, 0, len(t.Records))
	for _, r := range t.Records {
		m := make(map[string]string, len(t.Columns)+1)
		m["id"] = r.ID
		for _, c := range t.Columns {
			m[c] = r.Values[c]
		}
		out = append(out, m)
	}
	return out
}
