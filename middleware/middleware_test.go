package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	mw "github.com/BetoIII/docledger/middleware"
	"github.com/BetoIII/docledger/workflow"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRun() *workflow.Run {
	return &workflow.Run{
		ID:         id.NewRunID(),
		Kind:       workflow.KindExternalShare,
		DocumentID: id.NewDocumentID(),
		State:      workflow.RunStateActive,
	}
}

func newTestEvent() *ledger.Event {
	evt := ledger.NewPending("AccessGrantRecorded", nil)
	return &evt
}

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) mw.Middleware {
		return func(ctx context.Context, _ *workflow.Run, _ *ledger.Event, next mw.Handler) error {
			order = append(order, name+"-pre")
			err := next(ctx)
			order = append(order, name+"-post")
			return err
		}
	}

	chain := mw.Chain(mk("outer"), mk("inner"))
	err := chain(context.Background(), newTestRun(), newTestEvent(), func(_ context.Context) error {
		order = append(order, "action")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer-pre", "inner-pre", "action", "inner-post", "outer-post"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := mw.Chain()
	called := false
	err := chain(context.Background(), newTestRun(), newTestEvent(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("empty chain should still call the action")
	}
}

func TestChain_ErrorPropagates(t *testing.T) {
	chain := mw.Chain(mw.Logging(quietLogger()))
	wantErr := errors.New("boom")
	err := chain(context.Background(), newTestRun(), newTestEvent(), func(_ context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestRecover_ConvertsPanicToError(t *testing.T) {
	m := mw.Recover(quietLogger())
	err := m(context.Background(), newTestRun(), newTestEvent(), func(_ context.Context) error {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

func TestTimeout_CancelsContext(t *testing.T) {
	m := mw.Timeout(10 * time.Millisecond)
	err := m(context.Background(), newTestRun(), newTestEvent(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestTimeout_ZeroIsPassthrough(t *testing.T) {
	m := mw.Timeout(0)
	err := m(context.Background(), newTestRun(), newTestEvent(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Fatal("zero timeout should not set a deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWrapper_BridgesToDriver(t *testing.T) {
	chain := mw.Chain(mw.Recover(quietLogger()))
	wrap := mw.Wrapper(chain)

	run := newTestRun()
	evt := newTestEvent()
	called := false
	err := wrap(context.Background(), run, evt, func(_ context.Context, r *workflow.Run, e *ledger.Event) error {
		called = true
		if r != run || e != evt {
			t.Fatal("wrapper must pass the original run and event through")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("action not invoked")
	}
}
