package tree

import (
	"path"

	"github.com/ppdms/tree-eclass/internal/entity"
)

// Diff compares two snapshots of a course tree and returns the ordered list
// of changes. previous may be nil, in which case everything below the root
// is reported as added; the root itself represents the course and is never
// reported. Diff is a pure function over the two trees.
//
// Within one directory level the order is: deleted directories, then new
// directories in listing order (fully expanded when added, recursed into
// when kept), then deleted files, then added/modified files in listing
// order.
func Diff(previous, latest *entity.Node) []entity.Change {
	var changes []entity.Change

	if previous == nil {
		for _, f := range latest.Files {
			changes = append(changes, entity.Change{Kind: entity.ChangeAddedFile, Path: path.Join(latest.Name, f.Name)})
		}
		for _, child := range latest.Children {
			changes = append(changes, reportAllAdded(child, latest.Name)...)
		}

		return changes
	}

	oldDirs := dirsByName(previous.Children)
	newDirs := dirsByName(latest.Children)

	// Deleted directories are reported at the latest tree's local path.
	// Only the top-level deletion is emitted, not the vanished contents.
	for _, d := range previous.Children {
		if _, exists := newDirs[d.Name]; !exists {
			changes = append(changes, entity.Change{Kind: entity.ChangeDeletedDirectory, Path: path.Join(latest.LocalPath, d.Name)})
		}
	}

	for _, d := range latest.Children {
		if old, exists := oldDirs[d.Name]; exists {
			changes = append(changes, Diff(old, d)...)
		} else {
			changes = append(changes, reportAllAdded(d, latest.LocalPath)...)
		}
	}

	oldFiles := filesByURL(previous.Files)
	newFiles := filesByURL(latest.Files)

	for _, f := range previous.Files {
		if _, exists := newFiles[f.URL]; !exists {
			changes = append(changes, entity.Change{Kind: entity.ChangeDeletedFile, Path: path.Join(latest.LocalPath, f.Name)})
		}
	}

	for _, f := range latest.Files {
		filePath := path.Join(latest.LocalPath, f.Name)

		old, exists := oldFiles[f.URL]
		switch {
		case !exists:
			changes = append(changes, entity.Change{Kind: entity.ChangeAddedFile, Path: filePath})
		case old.MD5Hash != f.MD5Hash:
			// The hash is authoritative: a changed ETag alone is not
			// a modification.
			changes = append(changes, entity.Change{Kind: entity.ChangeModifiedFile, Path: filePath})
		}
	}

	return changes
}

// reportAllAdded expands a directory that did not exist before: the
// directory itself, then its files, then its subdirectories, depth-first in
// listing order.
func reportAllAdded(node *entity.Node, basePath string) []entity.Change {
	dirPath := path.Join(basePath, node.Name)
	changes := []entity.Change{{Kind: entity.ChangeAddedDirectory, Path: dirPath}}

	for _, f := range node.Files {
		changes = append(changes, entity.Change{Kind: entity.ChangeAddedFile, Path: path.Join(dirPath, f.Name)})
	}

	for _, child := range node.Children {
		changes = append(changes, reportAllAdded(child, dirPath)...)
	}

	return changes
}

// dirsByName indexes directories by display name, first match wins.
func dirsByName(nodes []*entity.Node) map[string]*entity.Node {
	m := make(map[string]*entity.Node, len(nodes))
	for _, n := range nodes {
		if _, exists := m[n.Name]; !exists {
			m[n.Name] = n
		}
	}

	return m
}

// filesByURL indexes files by URL, first match wins.
func filesByURL(files []*entity.File) map[string]*entity.File {
	m := make(map[string]*entity.File, len(files))
	for _, f := range files {
		if _, exists := m[f.URL]; !exists {
			m[f.URL] = f
		}
	}

	return m
}
