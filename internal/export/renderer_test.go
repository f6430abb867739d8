package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paytechai/docquery/internal/llm"
	"github.com/paytechai/docquery/internal/orchestrator"
)

func testConversation() orchestrator.Conversation {
	return orchestrator.Conversation{
		ID:    "thread-1",
		Title: "Análise do comprovante",
		Messages: []llm.Message{
			llm.User("Qual o valor total?"),
			llm.Assistant("O valor total é R$ 1.234,56."),
		},
	}
}

func newTestRenderer(t *testing.T) *FileRenderer {
	t.Helper()
	r, err := NewFileRenderer(t.TempDir(), "/exports", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return r
}

func TestRenderPDF(t *testing.T) {
	r := newTestRenderer(t)

	a, err := r.Render(context.Background(), "pdf", testConversation())
	require.NoError(t, err)
	assert.Equal(t, "pdf", a.Type)
	assert.True(t, strings.HasSuffix(a.Name, ".pdf"))
	assert.Equal(t, "/exports/"+a.Name, a.URL)

	data, err := os.ReadFile(filepath.Join(r.dir, a.Name))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "not a PDF header")
}

func TestRenderDocx(t *testing.T) {
	r := newTestRenderer(t)

	a, err := r.Render(context.Background(), "docx", testConversation())
	require.NoError(t, err)
	assert.Equal(t, "docx", a.Type)

	data, err := os.ReadFile(filepath.Join(r.dir, a.Name))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var doc string
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			doc = string(b)
		}
	}
	require.NotEmpty(t, doc, "word/document.xml missing from package")
	assert.Contains(t, doc, "R$ 1.234,56")
	assert.Contains(t, doc, "Análise do comprovante")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.Render(context.Background(), "zip", testConversation())
	assert.Error(t, err)
}

func TestRenderedNamesAreUnique(t *testing.T) {
	r := newTestRenderer(t)
	a1, err := r.Render(context.Background(), "docx", testConversation())
	require.NoError(t, err)
	a2, err := r.Render(context.Background(), "docx", testConversation())
	require.NoError(t, err)
	assert.NotEqual(t, a1.Name, a2.Name)
}
