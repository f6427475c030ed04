package reqctx

import (
	"context"
	"testing"
)

func TestRID(t *testing.T) {
	ctx := context.Background()
	if got := RID(ctx); got != "-" {
		t.Fatalf("got=%q want=-", got)
	}
	if got := RID(WithRID(ctx, "abc")); got != "abc" {
		t.Fatalf("got=%q want=abc", got)
	}
	if got := RID(WithRID(ctx, "")); got != "-" {
		t.Fatalf("got=%q want=-", got)
	}
}

func TestProductID(t *testing.T) {
	ctx := context.Background()
	if got := ProductID(ctx); got != 0 {
		t.Fatalf("got=%d want=0", got)
	}
	if got := ProductID(WithProductID(ctx, 42)); got != 42 {
		t.Fatalf("got=%d want=42", got)
	}
}
