package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChangeString(t *testing.T) {
	testCases := []struct {
		kind     ChangeKind
		expected string
	}{
		{ChangeAddedFile, "Added file: data/root/a.pdf"},
		{ChangeAddedDirectory, "Added directory: data/root/a.pdf"},
		{ChangeDeletedFile, "Deleted file: data/root/a.pdf"},
		{ChangeDeletedDirectory, "Deleted directory: data/root/a.pdf"},
		{ChangeModifiedFile, "Modified file: data/root/a.pdf"},
		{ChangeModifiedDirectory, "Modified directory: data/root/a.pdf"},
	}

	for _, tc := range testCases {
		c := Change{Kind: tc.kind, Path: "data/root/a.pdf"}
		require.Equal(t, tc.expected, c.String())
	}
}

func TestSummarize(t *testing.T) {
	changes := []Change{
		{Kind: ChangeAddedFile, Path: "a"},
		{Kind: ChangeAddedDirectory, Path: "b"},
		{Kind: ChangeDeletedFile, Path: "c"},
		{Kind: ChangeModifiedFile, Path: "d"},
	}

	require.Equal(t, "+ 2 − 1 ~ 1", Summarize(changes))
	require.Equal(t, "+ 0 − 0 ~ 0", Summarize(nil))
}

func TestClassifyResource(t *testing.T) {
	require.Equal(t, ForeignHostedResource, ClassifyResource("https://drive.google.com/file/d/abc/view"))
	require.Equal(t, StandardResource, ClassifyResource("https://eclass.aueb.gr/modules/document/file.php/INF101/a.pdf"))
}
