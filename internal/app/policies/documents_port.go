package policies

import (
	"context"
	"io"
)

// StageRequest describes an upload made before the reservation exists.
type StageRequest struct {
	SessionID   string
	DocType     string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// DocumentStager keeps checkout uploads in a staging area and moves them under
// the reservation once it is persisted.
type DocumentStager interface {
	Stage(ctx context.Context, req StageRequest) (key string, err error)
	Promote(ctx context.Context, stagingKey, reservationID string) (objectKey string, err error)
}
