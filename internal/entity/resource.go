package entity

import "strings"

const (
	// StandardResource is a file hosted on the e-class server itself. Its
	// ETag can be probed cheaply before deciding to download.
	StandardResource ResourceClass = iota

	// ForeignHostedResource is a file hosted on an external drive service.
	// No cheap validator exists for it, so its content hash has to be
	// recomputed on every run.
	ForeignHostedResource
)

type ResourceClass int

func (c ResourceClass) String() string {
	return [...]string{"Standard", "ForeignHosted"}[c]
}

// ClassifyResource decides which reconciliation policy applies to a file URL.
func ClassifyResource(url string) ResourceClass {
	if strings.Contains(url, "google") {
		return ForeignHostedResource
	}

	return StandardResource
}
