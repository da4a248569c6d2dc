package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	return out
}

func TestHandler_MasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "gotp", "info", nil, []string{"identifier"}))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	logger.InfoContext(ctx, "reset requested",
		"token", "raw-token",
		"identifier", "a@x.com",
		"body", `{"code":"123456","keep":"yes"}`,
		"attempt", 2,
	)

	line := decodeLine(t, &buf)
	if line["token"] != "***" || line["identifier"] != "***" {
		t.Fatalf("sensitive fields not masked: %v", line)
	}
	if !strings.Contains(line["body"].(string), `"code":"***"`) || !strings.Contains(line["body"].(string), `"keep":"yes"`) {
		t.Fatalf("json body not masked: %v", line["body"])
	}
	if line["_cID"] != "cid-1" || line["service"] != "gotp" {
		t.Fatalf("context attributes missing: %v", line)
	}
	if line["severity"] != "INFO" {
		t.Fatalf("severity = %v", line["severity"])
	}
}

func TestHandler_WithAttrsMasked(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "gotp", "", nil, nil)).With("secret", "JBSWY3DP")

	logger.Info("enrolled")

	if line := decodeLine(t, &buf); line["secret"] != "***" {
		t.Fatalf("secret = %v, want masked", line["secret"])
	}
}

func TestHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "gotp", "warn", nil, nil))

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %s", buf.String())
	}

	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn record not written")
	}
}

func TestCorrelationID(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "" {
		t.Fatalf("GetCorrelationID() = %q, want empty", got)
	}

	ctx := SetCorrelationID(context.Background(), "abc")
	if got := GetCorrelationID(ctx); got != "abc" {
		t.Fatalf("GetCorrelationID() = %q, want abc", got)
	}
}

func TestNoop(t *testing.T) {
	ins := NewNoop()
	_, span := ins.Tracer("t").Start(context.Background(), "op")
	span.End()

	if err := ins.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}
