package report

import (
	"context"
	"os"
	"testing"
)

// TestPostgresSink runs against a real database when
// SHEET_REDACT_TEST_DSN is set.
func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("SHEET_REDACT_TEST_DSN")
	if dsn == "" {
		t.Skip("SHEET_REDACT_TEST_DSN not set")
	}
	ctx := context.Background()

	sink, err := NewPostgresSink(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresSink failed: %v", err)
	}
	defer sink.Close()

	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	r := New(testSummary(), nil)
	if err := sink.Record(ctx, r); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var n int
	err = sink.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sheet_redact_audit WHERE run_id = $1", r.RunID).Scan(&n)
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 audit rows, got %d", n)
	}
}

func TestNewPostgresSink_RequiresDSN(t *testing.T) {
	if _, err := NewPostgresSink(context.Background(), ""); err == nil {
		t.Error("expected error for empty DSN")
	}
}
