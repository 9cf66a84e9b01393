package tree

import (
	"fmt"
	"io"

	"github.com/ppdms/tree-eclass/internal/entity"
)

// Fprint writes a box-drawing rendering of a snapshot, directories first,
// then files, the way the course page lists them.
func Fprint(w io.Writer, root *entity.Node) {
	fmt.Fprintln(w, root.Name)
	printChildren(w, root, "")
}

func printChildren(w io.Writer, node *entity.Node, indent string) {
	total := len(node.Children) + len(node.Files)
	n := 0

	for _, child := range node.Children {
		n++
		connector, childIndent := connectors(n == total)
		fmt.Fprintf(w, "%s%s%s\n", indent, connector, child.Name)
		printChildren(w, child, indent+childIndent)
	}

	for _, file := range node.Files {
		n++
		connector, _ := connectors(n == total)
		fmt.Fprintf(w, "%s%s%s\n", indent, connector, file.Name)
	}
}

func connectors(last bool) (connector, indent string) {
	if last {
		return "└── ", "    "
	}

	return "├── ", "│   "
}
