// Package members gates checkout to customers listed in the member roster.
//
// Roster files are gzipped text with one customer id per line. They are read
// once at startup from local disk or S3 and held in memory.
package members

import (
	"context"
)

// Checker decides whether a customer may place orders.
type Checker interface {
	// IsMember reports whether customerID appears in any loaded roster.
	IsMember(ctx context.Context, customerID string) (bool, error)

	// Close releases resources held by the checker.
	Close() error
}

// Roster is a read-only set of member ids.
type Roster interface {
	// Contains checks if a member id exists in the roster.
	Contains(id string) bool

	// Size returns the number of ids in the roster.
	Size() int
}

// Loader reads one roster file.
type Loader interface {
	Load(ctx context.Context, path string) (Roster, error)
}
