package entity

import (
	"fmt"
	"time"
)

const (
	ChangeAddedFile ChangeKind = iota
	ChangeAddedDirectory
	ChangeDeletedFile
	ChangeDeletedDirectory
	ChangeModifiedFile
	ChangeModifiedDirectory
)

type ChangeKind int

func (k ChangeKind) String() string {
	return [...]string{
		"Added file",
		"Added directory",
		"Deleted file",
		"Deleted directory",
		"Modified file",
		"Modified directory",
	}[k]
}

// Change is a single difference between two snapshots of a course tree.
type Change struct {
	Kind ChangeKind
	Path string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s", c.Kind, c.Path)
}

// Summarize renders the "+ a − d ~ m" counters line stored with every
// change record and shown in notifications.
func Summarize(changes []Change) string {
	var added, deleted, modified int
	for _, c := range changes {
		switch c.Kind {
		case ChangeAddedFile, ChangeAddedDirectory:
			added++
		case ChangeDeletedFile, ChangeDeletedDirectory:
			deleted++
		case ChangeModifiedFile, ChangeModifiedDirectory:
			modified++
		}
	}

	return fmt.Sprintf("+ %d − %d ~ %d", added, deleted, modified)
}

// ChangeRecord is one persisted check result for a course. ChangeNo is an
// RFC 3339 timestamp unique per course.
type ChangeRecord struct {
	ID        string       `json:"id"`
	CourseID  int          `json:"course_id"`
	ChangeNo  string       `json:"change_no"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Changes   []ChangeItem `json:"changes"`
}

// ChangeItem is the serialized form of a Change.
type ChangeItem struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// NewChangeItems converts diff output to its persisted form.
func NewChangeItems(changes []Change) []ChangeItem {
	items := make([]ChangeItem, 0, len(changes))
	for _, c := range changes {
		items = append(items, ChangeItem{Kind: c.Kind.String(), Path: c.Path})
	}

	return items
}
