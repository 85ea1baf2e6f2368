package port

import "context"

// DocumentStore keeps generated documents under slash-separated keys such as
// "SC001/quotation/SC001-QT-2025-0004.xlsx"
type DocumentStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Has(ctx context.Context, key string) bool
}
