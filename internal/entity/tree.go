package entity

// Link is one anchor extracted from a documents listing page.
type Link struct {
	URL  string
	Name string
}

// File represents a single document inside a directory node. URL is the
// identity key of the file within its parent directory. An empty MD5Hash or
// ETag means the value is unknown.
type File struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	MD5Hash string `json:"md5_hash,omitempty"`
	ETag    string `json:"etag,omitempty"`
}

// Node represents one directory of a course content tree. Children are
// matched across snapshots by Name, files by URL.
type Node struct {
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	LocalPath string  `json:"local_path"`
	Children  []*Node `json:"children,omitempty"`
	Files     []*File `json:"files,omitempty"`
}
