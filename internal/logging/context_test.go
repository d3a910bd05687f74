package logging

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestRequestContextFieldsInRecords(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	ctx := l.WithRequestContext(context.Background(), RequestContext{RequestID: "req-1"})
	l.Ctx(ctx).Info().Msg("within request")

	rec := buf.Lines(t)[0]
	if rec["request_id"] != "req-1" {
		t.Errorf("request_id: got %v", rec["request_id"])
	}
	if _, ok := rec["user_id"]; ok {
		t.Error("user_id should be absent until set")
	}
}

func TestWithUserIDUpgradesContext(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	ctx := l.WithRequestContext(context.Background(), RequestContext{RequestID: "req-2"})
	ctx = WithUserID(ctx, "user-42")
	l.Ctx(ctx).Info().Msg("authenticated")

	rec := buf.Lines(t)[0]
	if rec["request_id"] != "req-2" {
		t.Errorf("request_id: got %v", rec["request_id"])
	}
	if rec["user_id"] != "user-42" {
		t.Errorf("user_id: got %v", rec["user_id"])
	}

	rc, ok := RequestContextFrom(ctx)
	if !ok || rc.RequestID != "req-2" || rc.UserID != "user-42" {
		t.Errorf("request context: got %+v, ok=%v", rc, ok)
	}
}

func TestNoContextFallsBackToBase(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	l.Ctx(context.Background()).Info().Msg("no request")

	rec := buf.Lines(t)[0]
	if _, ok := rec["request_id"]; ok {
		t.Error("request_id should be absent without a request context")
	}
	if rec["message"] != "no request" {
		t.Errorf("message: got %v", rec["message"])
	}
}

// Concurrent requests must only ever see their own identifiers.
func TestConcurrentContextsDoNotLeak(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("req-%d", i)
			ctx := l.WithRequestContext(context.Background(), RequestContext{RequestID: id})
			for j := 0; j < 10; j++ {
				l.Ctx(ctx).Info().Dict("extra", Extra(map[string]any{"owner": id})).Msg("work")
			}
		}(i)
	}
	wg.Wait()

	recs := buf.Lines(t)
	if len(recs) != workers*10 {
		t.Fatalf("got %d records, want %d", len(recs), workers*10)
	}
	for _, rec := range recs {
		extra := rec["extra"].(map[string]any)
		if rec["request_id"] != extra["owner"] {
			t.Fatalf("record leaked context: request_id=%v owner=%v", rec["request_id"], extra["owner"])
		}
	}
}

func TestContextDoesNotOutliveRequestScope(t *testing.T) {
	buf := &syncBuffer{}
	l := testLogger(buf)

	func() {
		ctx := l.WithRequestContext(context.Background(), RequestContext{RequestID: "scoped", UserID: "u1"})
		l.Ctx(ctx).Info().Msg("inside")
	}()

	// Logging after the request scope ended must carry no leftovers.
	l.Base().Info().Msg("after")

	recs := buf.Lines(t)
	if recs[0]["request_id"] != "scoped" {
		t.Errorf("first record: got %v", recs[0]["request_id"])
	}
	last := recs[len(recs)-1]
	if _, ok := last["request_id"]; ok {
		t.Error("request_id leaked past request scope")
	}
	if _, ok := last["user_id"]; ok {
		t.Error("user_id leaked past request scope")
	}
}
