package reqctx

import "context"

type ctxKey string

const (
	keyRID       ctxKey = "catalog_rid"
	keyProductID ctxKey = "catalog_product_id"
)

// WithRID stores the request correlation id used in catalog logs.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present, "-" otherwise.
func RID(ctx context.Context) string {
	if v, _ := ctx.Value(keyRID).(string); v != "" {
		return v
	}
	return "-"
}

func WithProductID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, keyProductID, id)
}

func ProductID(ctx context.Context) uint64 {
	v, _ := ctx.Value(keyProductID).(uint64)
	return v
}
