package eclass

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppdms/tree-eclass/internal/entity"
)

const testBaseURL = "https://eclass.example.gr"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestExtractLinks(t *testing.T) {
	pageURL := testBaseURL + "/modules/document/index.php?course=INF101"

	page := `<html><body>
<a href="/modules/document/index.php?course=INF101">Έγγραφα</a>
<a href="/modules/document/index.php?course=INF101&sort=name">Όνομα</a>
<a href="/modules/document/file.php/INF101/lecture01.pdf">Διάλεξη 1</a>
<a href="/modules/document/file.php/INF101/lecture01.pdf">Αποθήκευση</a>
<a href="https://drive.google.com/file/d/abc123/view">Σημειώσεις Drive</a>
<a href="https://drive.google.com/drive/folders/xyz789">Φάκελος Drive</a>
<a href="https://support.google.com/drive/answer/1">Βοήθεια</a>
<a href="/modules/document/index.php?course=INF101&openDir=/labs">Εργαστήρια</a>
<a href="/modules/document/index.php?course=INF101&openDir=/">Ρίζα</a>
<a href="https://example.com/other">Εξωτερικός σύνδεσμος</a>
</body></html>`

	files, dirs, err := extractLinks(testBaseURL, pageURL, strings.NewReader(page), discardLogger())
	require.NoError(t, err)

	require.Equal(t, []entity.Link{
		{URL: testBaseURL + "/modules/document/file.php/INF101/lecture01.pdf", Name: "Διάλεξη 1"},
		{URL: "https://drive.google.com/file/d/abc123/view", Name: "Σημειώσεις Drive"},
	}, files)

	require.Equal(t, []entity.Link{
		{URL: testBaseURL + "/modules/document/index.php?course=INF101&openDir=/labs", Name: "Εργαστήρια"},
	}, dirs)
}

func TestExtractLinksAbsoluteURLsKeptVerbatim(t *testing.T) {
	page := `<a href="https://cdn.example.gr/modules/document/file.php/INF101/notes.pdf">Notes</a>`

	files, dirs, err := extractLinks(testBaseURL, "page", strings.NewReader(page), discardLogger())
	require.NoError(t, err)
	require.Empty(t, dirs)
	require.Len(t, files, 1)
	require.Equal(t, "https://cdn.example.gr/modules/document/file.php/INF101/notes.pdf", files[0].URL)
}

func TestHasFileExtension(t *testing.T) {
	testCases := []struct {
		href     string
		expected bool
	}{
		{"/modules/document/file.php/INF101/a.pdf", true},
		{"/modules/document/index.php?course=INF101&openDir=/labs", false},
		{"a.go", true},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.expected, hasFileExtension(tc.href), tc.href)
	}
}
