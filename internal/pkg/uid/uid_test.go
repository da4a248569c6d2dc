package uid

import (
	"testing"

	"github.com/google/uuid"
)

func TestSnowflake_Generate(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "7")

	gen, err := NewSnowflake()
	if err != nil {
		t.Fatalf("NewSnowflake() error = %v", err)
	}

	seen := make(map[int64]struct{}, 1000)
	prev := int64(0)
	for range 1000 {
		id := gen.Generate()
		if id <= prev {
			t.Fatalf("ids must increase: prev=%d got=%d", prev, id)
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
		prev = id
	}
}

func TestNodeNumber_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "999999")

	n := nodeNumber()
	if n < 0 || n > 1023 {
		t.Fatalf("nodeNumber() = %d, want within [0, 1023]", n)
	}
}

func TestUUID_Generate(t *testing.T) {
	id := NewUUID().Generate()

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) error = %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("version = %d, want 7", parsed.Version())
	}
}
