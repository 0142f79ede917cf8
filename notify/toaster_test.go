package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/notify"
	"github.com/BetoIII/docledger/workflow"
)

func testRun(kind workflow.Kind) *workflow.Run {
	return &workflow.Run{ID: id.NewRunID(), Kind: kind}
}

func TestToasterMilestone(t *testing.T) {
	sink := notify.NewChannelSink(4, nil)
	toaster := notify.NewToaster([]notify.Sink{sink})

	run := testRun(workflow.KindRegistration)
	evt := ledger.NewPending("OwnershipTokenMinted", nil)
	notice := workflow.Notice{Title: "Ownership token minted", Description: "Token #42"}

	if err := toaster.OnMilestone(context.Background(), run, &evt, notice); err != nil {
		t.Fatalf("OnMilestone: %v", err)
	}

	select {
	case n := <-sink.Notifications():
		if n.Level != notify.LevelSuccess {
			t.Fatalf("level = %q, want success", n.Level)
		}
		if n.Title != notice.Title || n.Description != notice.Description {
			t.Fatalf("notification = %+v", n)
		}
		if n.RunID != run.ID || n.Kind != run.Kind {
			t.Fatalf("notification run identity = %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}
}

func TestToasterFailureToast(t *testing.T) {
	sink := notify.NewChannelSink(4, nil)
	toaster := notify.NewToaster([]notify.Sink{sink})

	run := testRun(workflow.KindLicensing)
	if err := toaster.OnWorkflowFailed(context.Background(), run, errors.New("offer service down")); err != nil {
		t.Fatalf("OnWorkflowFailed: %v", err)
	}

	select {
	case n := <-sink.Notifications():
		if n.Level != notify.LevelError {
			t.Fatalf("level = %q, want error", n.Level)
		}
		if n.Description != "offer service down" {
			t.Fatalf("description = %q", n.Description)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification delivered")
	}
}

func TestToasterRateLimitDrops(t *testing.T) {
	sink := notify.NewChannelSink(64, nil)
	toaster := notify.NewToaster([]notify.Sink{sink},
		notify.WithRateLimit(rate.Limit(1), 2))

	run := testRun(workflow.KindFirmShare)
	evt := ledger.NewPending("FirmAccessTokenMinted", nil)
	for range 10 {
		if err := toaster.OnMilestone(context.Background(), run, &evt, workflow.Notice{Title: "x"}); err != nil {
			t.Fatalf("OnMilestone: %v", err)
		}
	}

	// Burst of 2 passes, the rest are dropped.
	delivered := len(sink.Notifications())
	if delivered > 2 {
		t.Fatalf("delivered %d notifications past a burst of 2", delivered)
	}
	if delivered == 0 {
		t.Fatal("rate limiter dropped everything, burst should pass")
	}
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	var dropped int
	sink := notify.NewChannelSink(1, func(notify.Notification) { dropped++ })

	ctx := context.Background()
	for range 3 {
		if err := sink.Deliver(ctx, notify.Notification{}); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}

	if dropped != 2 {
		t.Fatalf("dropped %d, want 2", dropped)
	}
	if got := len(sink.Notifications()); got != 1 {
		t.Fatalf("buffered %d, want 1", got)
	}
}
