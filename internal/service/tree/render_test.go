package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppdms/tree-eclass/internal/entity"
)

func TestFprint(t *testing.T) {
	root := &entity.Node{
		Name:  "course",
		Files: []*entity.File{{Name: "syllabus.pdf"}},
		Children: []*entity.Node{
			{
				Name:  "Labs",
				Files: []*entity.File{{Name: "lab1.pdf"}, {Name: "lab2.pdf"}},
			},
		},
	}

	var b strings.Builder
	Fprint(&b, root)

	require.Equal(t, strings.Join([]string{
		"course",
		"├── Labs",
		"│   ├── lab1.pdf",
		"│   └── lab2.pdf",
		"└── syllabus.pdf",
		"",
	}, "\n"), b.String())
}
