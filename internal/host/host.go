// internal/host/host.go
// Package host defines the boundary to the external scripting host: the
// out-of-process engine that runs script text inside the browser's current
// document. Adapters live in sub-packages (safari, cdp).
package host

import "context"

// Host runs one script per call, synchronously, against the document the
// adapter currently owns. Establishing the window and tracking the current
// document reference are the adapter's job.
type Host interface {
	// RunScript evaluates script and returns its completion value decoded to
	// a JSON-scalar-compatible Go value (string, float64, bool, nil, or
	// map/slice for structured replies). A host-level failure is returned as
	// an error.
	RunScript(ctx context.Context, script string) (any, error)
	// URL returns the current document's URL, empty while nothing is loaded.
	URL(ctx context.Context) (string, error)
	// SetURL starts navigation to url without waiting for it to load.
	SetURL(ctx context.Context, url string) error
}

// DialogPresser addresses host GUI chrome (alerts, permission sheets) by
// visible button label. It is a side channel distinct from in-page scripts.
type DialogPresser interface {
	// PressButton clicks the named button if present. When sheet is true the
	// button is looked up on the window's attached sheet. The raw reply is
	// returned for the execution protocol to decode.
	PressButton(ctx context.Context, label string, sheet bool) (string, error)
}
