package driven

import (
	"context"
	"io"
)

// FileInspector checks file content before it is uploaded.
// A rejected file returns an error matching domain.ErrValidation.
type FileInspector interface {
	Inspect(ctx context.Context, name string, content io.ReadSeeker) error
}
