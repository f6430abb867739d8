// Package docsession tracks the sticky "active document" of a conversation.
// While a document is active, every turn answers from that document only.
package docsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/paytechai/docquery/internal/retrieval"
	"github.com/paytechai/docquery/internal/store"
)

// Kind classifies what a message did to the session's document state.
type Kind string

const (
	// KindNone leaves the state untouched.
	KindNone Kind = "none"
	// KindSelected activates a document and the turn still wants an answer.
	KindSelected Kind = "selected"
	// KindSelectedAck activates a document from a bare selection message;
	// the turn short-circuits with the acknowledgment.
	KindSelectedAck Kind = "selected_ack"
	// KindExited cleared the active document.
	KindExited Kind = "exited"
)

// Decision is the outcome of observing one message.
type Decision struct {
	Kind  Kind
	State store.SessionState
	// Ack is the ready-to-send reply for KindSelectedAck and KindExited.
	Ack string
}

const (
	ackPrefix   = "Documento atual definido: "
	exitedReply = "Ok, voltando ao modo geral."

	// Bare selections longer than this carry enough text to be a question.
	maxBareSelectionLen = 80
)

var (
	selectionCueRE = regexp.MustCompile(`(?i)\b(?:usar|use|abrir|abra|analis[ae]r?|ler|carregue?|selecion[ae]r?)\s+(?:o\s+|a\s+)?(?:arquivo|documento|planilha)?`)
	exitCues       = []string{"voltar geral", "voltar ao geral", "sair do documento", "fechar documento", "sair do modo documento"}
	fileTokenRE    = regexp.MustCompile(`(?i)\b[\wÀ-ÿ.\-]+\.(pdf|csv|xlsx|xls|txt)\b`)
	questionCueRE  = regexp.MustCompile(`(?i)\b(quant[oa]s?|qual|quais|liste?|listar|mostre|resum[ao]|onde|quando|quem|como|por\s*que|calcule|extraia)\b`)
)

// Tracker resolves selection and exit signals and persists the state.
type Tracker struct {
	catalog   store.Catalog
	retriever *retrieval.Retriever
	logger    *slog.Logger
}

func NewTracker(catalog store.Catalog, retriever *retrieval.Retriever, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{catalog: catalog, retriever: retriever, logger: logger}
}

// Current returns the persisted state for a thread, active or not.
func (t *Tracker) Current(ctx context.Context, tenantID, threadKey string) (store.SessionState, bool, error) {
	return t.catalog.GetSession(ctx, tenantID, threadKey)
}

// Clear deactivates the thread's document without an exit phrase, for
// explicit API resets.
func (t *Tracker) Clear(ctx context.Context, tenantID, threadKey string) error {
	return t.catalog.UpsertSession(ctx, store.SessionState{
		TenantID:  tenantID,
		ThreadKey: threadKey,
		Active:    false,
	})
}

// Observe applies one message to the thread's document state. A new
// selection always replaces the previous active document.
func (t *Tracker) Observe(ctx context.Context, tenantID, threadKey, message string) (Decision, error) {
	msg := strings.TrimSpace(message)
	state, _, err := t.catalog.GetSession(ctx, tenantID, threadKey)
	if err != nil {
		return Decision{}, fmt.Errorf("loading session: %w", err)
	}
	state.TenantID = tenantID
	state.ThreadKey = threadKey

	low := strings.ToLower(msg)
	for _, cue := range exitCues {
		if strings.Contains(low, cue) {
			state.Active = false
			state.DocID = ""
			state.Filename = ""
			if err := t.catalog.UpsertSession(ctx, state); err != nil {
				return Decision{}, fmt.Errorf("persisting session: %w", err)
			}
			return Decision{Kind: KindExited, State: state, Ack: exitedReply}, nil
		}
	}

	doc, selected := t.resolveSelection(ctx, tenantID, msg)
	if !selected {
		return Decision{Kind: KindNone, State: state}, nil
	}

	state.Active = true
	state.DocID = doc.ID
	state.Filename = doc.Filename
	if err := t.catalog.UpsertSession(ctx, state); err != nil {
		return Decision{}, fmt.Errorf("persisting session: %w", err)
	}

	if isBareSelection(msg) {
		return Decision{
			Kind:  KindSelectedAck,
			State: state,
			Ack:   ackPrefix + doc.Filename,
		}, nil
	}
	return Decision{Kind: KindSelected, State: state}, nil
}

// resolveSelection decides whether the message selects a document and
// resolves it: filename/id hint first, then best-document retrieval for
// hint-less selection phrases.
func (t *Tracker) resolveSelection(ctx context.Context, tenantID, msg string) (store.Document, bool) {
	hint := fileTokenRE.FindString(msg)
	hasCue := selectionCueRE.MatchString(msg)
	if hint == "" && !hasCue {
		return store.Document{}, false
	}

	if hint != "" {
		doc, err := t.catalog.FindDocumentByHint(ctx, tenantID, hint)
		if err == nil {
			return doc, true
		}
		if !errors.Is(err, store.ErrDocumentNotFound) {
			t.logger.Warn("Document hint lookup failed", "hint", hint, "error", err)
		}
	}

	if hasCue && t.retriever != nil {
		if docID, ok := t.retriever.BestDocument(ctx, tenantID, msg, retrieval.DefaultTopK); ok {
			doc, err := t.catalog.GetDocument(ctx, tenantID, docID)
			if err == nil {
				return doc, true
			}
		}
	}

	return store.Document{}, false
}

// isBareSelection reports whether the message is a selection with no
// question signal attached.
func isBareSelection(msg string) bool {
	if len([]rune(msg)) > maxBareSelectionLen {
		return false
	}
	if strings.Contains(msg, "?") {
		return false
	}
	return !questionCueRE.MatchString(msg)
}
