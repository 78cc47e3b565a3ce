package domain

import "time"

// Workbook groups sheets inside a space of the host platform.
type Workbook struct {
	ID        string    `json:"id"`
	SpaceID   string    `json:"space_id"`
	Name      string    `json:"name"`
	Sheets    []Sheet   `json:"sheets"`
	CreatedAt time.Time `json:"created_at"`
}

// SheetBySlug finds a sheet of the workbook by slug.
func (w Workbook) SheetBySlug(slug string) (Sheet, bool) {
	for _, sheet := range w.Sheets {
		if sheet.Slug == slug {
			return sheet, true
		}
	}
	return Sheet{}, false
}

// Sheet is a table of records.
type Sheet struct {
	ID         string   `json:"id"`
	WorkbookID string   `json:"workbook_id"`
	Slug       string   `json:"slug"`
	Name       string   `json:"name"`
	FieldKeys  []string `json:"field_keys"`
}

// SheetSpec is the shape a caller asks the host to create.
type SheetSpec struct {
	Slug      string
	Name      string
	FieldKeys []string
}
