package health

import "context"

// SnapshotRepository port (append-only raw snapshots)
type SnapshotRepository interface {
	Create(ctx context.Context, s *RawSnapshot) error
	Latest(ctx context.Context, customerID string, dataType DataType) (*RawSnapshot, error)
}

// AnalysisRepository port. Latest* return nil, nil when nothing was stored yet.
type AnalysisRepository interface {
	Create(ctx context.Context, a *Analysis) error
	Latest(ctx context.Context, customerID string, category Category) (*Analysis, error)
	LatestPerCategory(ctx context.Context, customerID string) (map[Category]*Analysis, error)
}

// PayloadStore archives raw upstream payloads (export files) outside the database.
type PayloadStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
