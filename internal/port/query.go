package port

import (
	"context"
	"encoding/json"

	"qbridge/internal/domain"
)

// FileContent is a downloaded attachment body plus its file name.
type FileContent struct {
	Data     []byte
	FileName string
}

// QueryClient abstracts the remote accounting API: paginated filter queries,
// single-entity reads, and the attachment download/upload primitives. Rows
// come back as raw JSON keyed by the entity root key; callers decode into the
// domain wire models.
type QueryClient interface {
	// QueryAll pages through every row matching the filter expression.
	QueryAll(ctx context.Context, conn domain.Connection, entity domain.EntityType, where string) ([]json.RawMessage, error)
	// QueryPage fetches a single page starting at startPos (1-based).
	QueryPage(ctx context.Context, conn domain.Connection, entity domain.EntityType, where string, startPos, pageSize int) ([]json.RawMessage, error)
	// FetchByID reads one entity; returns (nil, nil) when the remote has no
	// such entity.
	FetchByID(ctx context.Context, conn domain.Connection, entity domain.EntityType, id string) (json.RawMessage, error)
	// DownloadFile fetches the attachment binary from its file-access URL.
	DownloadFile(ctx context.Context, conn domain.Connection, att *domain.Attachable) (*FileContent, error)
	// UploadAttachment uploads the binary plus its metadata envelope and
	// links it to the target entity.
	UploadAttachment(ctx context.Context, conn domain.Connection, entity domain.EntityType, targetID string, file *FileContent, note string) error
	// CompanyName resolves the display name of the connected company.
	CompanyName(ctx context.Context, conn domain.Connection) (string, error)
}

// ConnectionStore exposes the three named connection slots.
type ConnectionStore interface {
	Get(slot domain.ConnectionSlot) domain.Connection
	Set(slot domain.ConnectionSlot, conn domain.Connection)
	Clear(slot domain.ConnectionSlot)
}
