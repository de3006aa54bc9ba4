package interactions

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/concierge/pkg/pagination"
)

// System defines the public contract for interaction log operations.
// Entries cannot be updated or deleted.
type System interface {
	Handler() *Handler

	// Append persists one entry. When the archive upload fails after a
	// successful insert the stored entry is returned together with an
	// error wrapping both ErrLogWrite and ErrArchive.
	Append(ctx context.Context, entry Entry) (*Entry, error)

	Find(ctx context.Context, id uuid.UUID) (*Entry, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Entry], error)

	Stats(ctx context.Context, window Window) (*Stats, error)

	// Archived streams the archived JSON for an entry. The caller must close the reader.
	Archived(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}
