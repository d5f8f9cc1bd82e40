package focus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"focustriage/pkg/logx"
)

func TestState(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want State
	}{
		{"active records", `{"data":[{"storeAssertionRecords":[{"id":1}]}]}`, Active},
		{"active object", `{"data":[{"x":1},{"storeAssertionRecords":{}}]}`, Active},
		{"active true", `{"data":[{"storeAssertionRecords":true}]}`, Active},
		{"empty array counts", `{"data":[{"storeAssertionRecords":[]}]}`, Active},
		{"null", `{"data":[{"storeAssertionRecords":null}]}`, Inactive},
		{"false", `{"data":[{"storeAssertionRecords":false}]}`, Inactive},
		{"absent", `{"data":[{"other":1}]}`, Inactive},
		{"no data", `{}`, Inactive},
		{"data not array", `{"data":{"storeAssertionRecords":[1]}}`, Inactive},
		{"malformed", `{"data":[`, Inactive},
	}
	dir := t.TempDir()
	for i, tt := range tests {
		p := filepath.Join(dir, "a"+string(rune('a'+i))+".json")
		if err := os.WriteFile(p, []byte(tt.body), 0o644); err != nil {
			t.Fatal(err)
		}
		got := NewDetector(p, logx.Nop()).State(context.Background())
		if got != tt.want {
			t.Fatalf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
}

func TestState_MissingFile(t *testing.T) {
	t.Parallel()
	d := NewDetector(filepath.Join(t.TempDir(), "missing.json"), logx.Nop())
	if got := d.State(context.Background()); got != Inactive {
		t.Fatalf("got %v", got)
	}
	if _, err := d.Check(); err == nil {
		t.Fatal("expected Check error for missing file")
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()
	if got := ResolvePath(" /tmp/x.json "); got != "/tmp/x.json" {
		t.Fatalf("configured path not honored: %q", got)
	}
	if got := ResolvePath(""); got == "" {
		t.Fatal("expected a fallback path")
	}
}
