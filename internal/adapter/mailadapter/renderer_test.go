package mailadapter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppdms/tree-eclass/internal/entity"
)

func testChanges() map[string][]entity.Change {
	return map[string][]entity.Change{
		"Algorithms": {
			{Kind: entity.ChangeAddedFile, Path: "data/algo/notes.pdf"},
			{Kind: entity.ChangeModifiedFile, Path: "data/algo/slides.pdf"},
		},
		"Databases": {
			{Kind: entity.ChangeDeletedDirectory, Path: "data/db/Old"},
		},
	}
}

func TestSubject(t *testing.T) {
	require.Equal(t, "Change Detected: Algorithms", Subject(map[string][]entity.Change{
		"Algorithms": {{Kind: entity.ChangeAddedFile, Path: "a"}},
	}))
	require.Equal(t, "Changes Detected in 2 Courses", Subject(testChanges()))
}

func TestPlain(t *testing.T) {
	plain := Plain(testChanges())

	require.Contains(t, plain, "=== Course: Algorithms ===")
	require.Contains(t, plain, "- Added file: data/algo/notes.pdf")
	require.Contains(t, plain, "- Deleted directory: data/db/Old")
}

func TestHTML(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	html, err := renderer.HTML(testChanges())
	require.NoError(t, err)

	require.Contains(t, html, "<h2>Algorithms</h2>")
	require.Contains(t, html, "Added file: data/algo/notes.pdf")
	require.Contains(t, html, "+ 1 − 0 ~ 1")
	require.Contains(t, html, "Change Detected - tree-eclass")
}

func TestHTMLIsDeterministic(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	first, err := renderer.HTML(testChanges())
	require.NoError(t, err)

	second, err := renderer.HTML(testChanges())
	require.NoError(t, err)

	require.Equal(t, first, second)
}
