package extract

import "errors"

// ErrExtractionFailed indicates a file could not be converted to text.
// Ingestion aborts on this error; nothing is persisted.
var ErrExtractionFailed = errors.New("extraction failed")
