package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/quizzard/quizzard/internal/ocr"
	"github.com/quizzard/quizzard/internal/screen"
)

func TestLoopSolvesOnChange(t *testing.T) {
	engine := &fakeEngine{byImage: map[string]*ocr.Result{"full": flatResult()}}
	clicker := &fakeClicker{}
	r := newTestRunner(t, knownDB(), engine, clicker, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(r, screen.NewDiffer(0), 100)
	go loop.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.History().Events():
			if ev.Outcome != OutcomeClicked {
				t.Fatalf("outcome = %s (%s)", ev.Outcome, ev.Detail)
			}
			return
		case <-deadline:
			t.Fatal("loop never produced a cycle")
		}
	}
}

func TestLoopIdleWhenDisabled(t *testing.T) {
	engine := &fakeEngine{byImage: map[string]*ocr.Result{"full": flatResult()}}
	r := newTestRunner(t, knownDB(), engine, &fakeClicker{}, nil, Config{})
	r.Gate().SetEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(r, screen.NewDiffer(0), 100)
	go loop.Run(ctx)

	select {
	case ev := <-r.History().Events():
		t.Fatalf("disabled loop produced a cycle: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
