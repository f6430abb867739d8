package intent

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paytechai/docquery/internal/store"
)

const (
	keywordWindow = 2
	maxListBlocks = 80
)

// Engine executes classified queries against a document's full text and
// tabular metadata.
type Engine struct {
	fullTexts store.FullTexts
	logger    *slog.Logger
}

func NewEngine(fullTexts store.FullTexts, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{fullTexts: fullTexts, logger: logger}
}

// Execute computes the answer for q against doc. It returns false only when
// the document's text cannot be read; a classified question with no
// evidence returns the fixed sentinel, never an empty answer.
func (e *Engine) Execute(ctx context.Context, q *Query, doc store.Document) (Answer, bool) {
	text, err := e.fullTexts.Load(doc.TenantID, doc.ID)
	if err != nil {
		e.logger.Warn("Full text unavailable for deterministic answer",
			"tenant", doc.TenantID, "doc", doc.ID, "error", err)
		return Answer{}, false
	}

	answer := e.run(q, doc, text)
	return Answer{
		Text:    answer,
		Sources: []Source{{DocID: doc.ID, Filename: doc.Filename}},
	}, true
}

func (e *Engine) run(q *Query, doc store.Document, text string) string {
	switch q.Action {
	case ActionCount:
		return e.runCount(q, doc, text)
	case ActionStats:
		return e.runStats(q, doc, text)
	case ActionExtract:
		if line, ok := extractFirstLine(text, q.Field); ok {
			return line
		}
		return NotFoundAnswer
	case ActionList:
		return e.runList(q, text)
	}
	return NotFoundAnswer
}

func (e *Engine) runCount(q *Query, doc store.Document, text string) string {
	switch q.Target {
	case TargetPunct, TargetNeedle:
		return strconv.Itoa(CountSubstring(text, q.Needle, true))
	case TargetChars:
		return strconv.Itoa(len([]rune(text)))
	case TargetWords:
		return strconv.Itoa(len(strings.Fields(text)))
	case TargetRecords:
		if doc.Rows > 0 {
			return strconv.Itoa(doc.Rows)
		}
		if rows, _, ok := shapeFromText(text); ok && rows > 0 {
			return strconv.Itoa(rows)
		}
		if n := bestMarkerCount(text); n > 0 {
			return strconv.Itoa(n)
		}
		return NotFoundAnswer
	}
	return NotFoundAnswer
}

func (e *Engine) runStats(q *Query, doc store.Document, text string) string {
	rows, cols := doc.Rows, doc.Cols
	columns := doc.ColumnNames
	// Stats missing from the catalog are recomputed from the rendered text.
	if rows == 0 && cols == 0 {
		if r, c, ok := shapeFromText(text); ok {
			rows, cols = r, c
		}
	}
	if len(columns) == 0 {
		columns = columnNamesFromText(text)
	}

	switch q.Target {
	case TargetRows:
		if rows > 0 {
			return strconv.Itoa(rows)
		}
	case TargetCols:
		if cols > 0 {
			return strconv.Itoa(cols)
		}
	case TargetColumns:
		if len(columns) > 0 {
			return strings.Join(columns, ", ")
		}
	}
	return NotFoundAnswer
}

func (e *Engine) runList(q *Query, text string) string {
	if q.Target == TargetNames {
		if table, ok := parseTable(text); ok {
			if values, ok := table.columnValues(columnSynonyms[q.Needle]); ok {
				return strings.Join(values, "\n")
			}
		}
	}

	blocks := FindLinesWithKeyword(text, q.Needle, keywordWindow, maxListBlocks)
	if len(blocks) == 0 {
		return NotFoundAnswer
	}
	return strings.Join(blocks, "\n\n")
}
