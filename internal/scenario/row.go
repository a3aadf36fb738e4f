// Package scenario compiles the rows of the visual scenario editor into
// the JSON program executed by the browser extension.
package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one serialised editor row. Rows are compiled in order.
type Row struct {
	ID              string   `json:"id"`
	ShowOnInit      bool     `json:"showOnInit"`
	Label           string   `json:"label,omitempty"`
	TextFields      []string `json:"textFields"`
	CheckboxChecked *bool    `json:"checkboxChecked,omitempty"`
	Choice          *string  `json:"choice,omitempty"`
}

// UnmarshalJSON also accepts "fields" as an alias of "textFields".
func (r *Row) UnmarshalJSON(b []byte) error {
	type plain Row
	var aux struct {
		plain
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Row(aux.plain)
	if r.TextFields == nil {
		r.TextFields = aux.Fields
	}
	return nil
}

// HasCheckbox reports whether the row carries a checkbox widget.
func (r Row) HasCheckbox() bool {
	return r.CheckboxChecked != nil
}

func (r Row) Checked() bool {
	return r.CheckboxChecked != nil && *r.CheckboxChecked
}

// Field returns the i-th text field, or "" when absent.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.TextFields) {
		return ""
	}
	return r.TextFields[i]
}

func (r Row) isGoogle() bool  { return strings.HasPrefix(r.ID, "google") }
func (r Row) isYoutube() bool { return strings.HasPrefix(r.ID, "youtube") }

// LoadRows decodes a JSON array of rows.
func LoadRows(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	for i, row := range rows {
		if strings.TrimSpace(row.ID) == "" {
			return nil, fmt.Errorf("row %d: missing id", i)
		}
	}
	return rows, nil
}

func LoadRowsFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadRows(f)
}
