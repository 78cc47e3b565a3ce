package federation

import "errors"

// ErrNoSourceSheets is returned when a source workbook holds no sheet the
// blueprint federates from.
var ErrNoSourceSheets = errors.New("No source sheets found")
