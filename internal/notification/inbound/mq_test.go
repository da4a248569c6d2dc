package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gotp/internal/notification/usecase"
	"github.com/shandysiswandi/gotp/internal/pkg/config"
	"github.com/shandysiswandi/gotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/messaging"
	"github.com/shandysiswandi/gotp/internal/shared/event"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type fakeMessage struct {
	body    []byte
	headers map[string]string
}

func (m fakeMessage) Body() []byte               { return m.body }
func (m fakeMessage) Header(key string) string   { return m.headers[key] }
func (m fakeMessage) ID() string                 { return "1" }
func (m fakeMessage) Timestamp() time.Time       { return time.Time{} }
func (m fakeMessage) Ack(context.Context) error  { return nil }
func (m fakeMessage) Nack(context.Context) error { return nil }

type fakeUsecase struct {
	mu         sync.Mutex
	registered []usecase.ConsumeAccountRegisteredInput
	rotated    []usecase.ConsumeAccountSecretRotatedInput
	cIDs       []string
	err        error
}

func (f *fakeUsecase) ConsumeAccountRegistered(ctx context.Context, in usecase.ConsumeAccountRegisteredInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, in)
	f.cIDs = append(f.cIDs, instrument.GetCorrelationID(ctx))
	return f.err
}

func (f *fakeUsecase) ConsumeAccountSecretRotated(ctx context.Context, in usecase.ConsumeAccountSecretRotatedInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotated = append(f.rotated, in)
	f.cIDs = append(f.cIDs, instrument.GetCorrelationID(ctx))
	return f.err
}

func (f *fakeUsecase) rotatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rotated)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestMQHandler_AccountRegistered(t *testing.T) {
	uc := &fakeUsecase{}
	h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}

	body := mustJSON(t, event.AccountRegisteredMessage{AccountID: 1, Identifier: "a@x.io", RegisteredAt: 10})
	if err := h.AccountRegisteredNotification(context.Background(), fakeMessage{body: body, headers: map[string]string{"cID": "from-header"}}); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if err := h.AccountRegisteredNotification(context.Background(), fakeMessage{body: body}); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if uc.registered[0].Identifier != "a@x.io" || uc.registered[0].RegisteredAt != 10 {
		t.Fatalf("input = %+v", uc.registered[0])
	}
	if uc.cIDs[0] != "from-header" || uc.cIDs[1] != "generated" {
		t.Fatalf("correlation ids = %v", uc.cIDs)
	}
}

func TestMQHandler_MalformedBodyIsAcked(t *testing.T) {
	uc := &fakeUsecase{}
	h := &MQHandler{uc: uc, uuid: fixedID("x"), ins: instrument.NewNoop()}

	if err := h.AccountSecretRotatedNotification(context.Background(), fakeMessage{body: []byte("{")}); err != nil {
		t.Fatalf("handler error = %v, want nil", err)
	}
	if len(uc.rotated) != 0 {
		t.Fatal("usecase called for malformed body")
	}
}

func TestMQHandler_UsecaseErrorIsReturned(t *testing.T) {
	want := errors.New("smtp down")
	h := &MQHandler{uc: &fakeUsecase{err: want}, uuid: fixedID("x"), ins: instrument.NewNoop()}

	body := mustJSON(t, event.AccountSecretRotatedMessage{AccountID: 1, Identifier: "a@x.io", RotatedAt: 10})
	if err := h.AccountSecretRotatedNotification(context.Background(), fakeMessage{body: body}); !errors.Is(err, want) {
		t.Fatalf("handler error = %v, want %v", err, want)
	}
}

func TestRegisterMQConsumer(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(
		"modules:\n  notification:\n    consumer_names: account_secret_rotated_notification\n"))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	broker := messaging.NewMemory()
	routine := goroutine.NewManager(4)
	uc := &fakeUsecase{}

	started := RegisterMQConsumer(ctx, cfg, routine, broker, fixedID("x"), uc, instrument.NewNoop())
	if started != 1 {
		t.Fatalf("started = %d, want 1", started)
	}

	body := mustJSON(t, event.AccountSecretRotatedMessage{AccountID: 1, Identifier: "a@x.io", RotatedAt: 10})
	deadline := time.Now().Add(2 * time.Second)
	for uc.rotatedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("message not consumed")
		}
		if err := broker.Publish(ctx, event.AccountSecretRotatedDestination, messaging.OutgoingMessage{Body: body}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := routine.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v", err)
	}
}
