package eclass

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDriveDownloadURL(t *testing.T) {
	testCases := []struct {
		name     string
		fileURL  string
		expected string
	}{
		{
			name:     "file/d link",
			fileURL:  "https://drive.google.com/file/d/abc_12-3/view?usp=sharing",
			expected: "https://drive.usercontent.google.com/download?id=abc_12-3&export=download",
		},
		{
			name:     "open?id link",
			fileURL:  "https://drive.google.com/open?id=xyz789",
			expected: "https://drive.usercontent.google.com/download?id=xyz789&export=download",
		},
		{
			name:     "link with resource key",
			fileURL:  "https://drive.google.com/file/d/abc123/view?resourcekey=0-KEY",
			expected: "https://drive.usercontent.google.com/download?id=abc123&export=download&resourcekey=0-KEY",
		},
		{
			name:     "link with authuser",
			fileURL:  "https://drive.google.com/file/d/abc123/view?authuser=me%40example.com",
			expected: "https://drive.usercontent.google.com/download?id=abc123&export=download&authuser=me@example.com",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, driveDownloadURL(tc.fileURL))
		})
	}
}

func TestFileNameFromDisposition(t *testing.T) {
	require.Equal(t, "notes.pdf", fileNameFromDisposition(`attachment; filename="notes.pdf"`))
	require.Equal(t, "", fileNameFromDisposition(""))
	require.Equal(t, "", fileNameFromDisposition("attachment"))
}
