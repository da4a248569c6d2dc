package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestManager_CollectsErrors(t *testing.T) {
	m := NewManager(4)
	errBoom := errors.New("boom")

	var ran atomic.Int32
	for i := range 3 {
		ok := m.Go(context.Background(), func(context.Context) error {
			ran.Add(1)
			if i == 1 {
				return errBoom
			}
			return nil
		})
		if !ok {
			t.Fatalf("Go(%d) = false, want true", i)
		}
	}

	err := m.Wait()
	if !errors.Is(err, errBoom) {
		t.Fatalf("Wait() error = %v, want %v", err, errBoom)
	}
	if ran.Load() != 3 {
		t.Fatalf("ran = %d, want 3", ran.Load())
	}
}

func TestManager_RecoversPanic(t *testing.T) {
	m := NewManager(1)
	m.Go(context.Background(), func(context.Context) error { panic("kaboom") })

	if err := m.Wait(); !errors.Is(err, ErrPanic) {
		t.Fatalf("Wait() error = %v, want ErrPanic", err)
	}
}

func TestManager_LimitAndClosed(t *testing.T) {
	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})

	m.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	if m.Go(context.Background(), func(context.Context) error { return nil }) {
		t.Fatal("Go() over limit = true, want false")
	}

	close(release)
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if m.Go(context.Background(), func(context.Context) error { return nil }) {
		t.Fatal("Go() after Wait = true, want false")
	}
}

func TestManager_CanceledContextSkipsTask(t *testing.T) {
	m := NewManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	m.Go(ctx, func(context.Context) error {
		called = true
		return nil
	})

	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if called {
		t.Fatal("task ran with canceled context")
	}
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	if m.Go(context.Background(), func(context.Context) error { return nil }) {
		t.Fatal("nil Go() = true")
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("nil Wait() error = %v", err)
	}
}
