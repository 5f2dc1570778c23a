// Package ids generates request identifiers.
package ids

import "github.com/oklog/ulid/v2"

// NewRequestID returns a lexicographically sortable identifier used to
// correlate log lines and error payloads belonging to one request.
func NewRequestID() string {
	return ulid.Make().String()
}
