package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/routeagent/pkg/history"
	"github.com/vango-dev/routeagent/pkg/route"
)

type pageState struct {
	Tab  int    `json:"tab"`
	Name string `json:"name,omitempty"`
}

type recorder[T any] struct {
	ch chan route.Route[T]
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{ch: make(chan route.Route[T], 256)}
}

func (r *recorder[T]) fn(rt route.Route[T]) {
	r.ch <- rt
}

func (r *recorder[T]) next(t *testing.T) route.Route[T] {
	t.Helper()
	select {
	case rt := <-r.ch:
		return rt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for route")
		return route.Route[T]{}
	}
}

func (r *recorder[T]) expectNone(t *testing.T) {
	t.Helper()
	select {
	case rt := <-r.ch:
		t.Fatalf("unexpected route %q", rt.Path)
	case <-time.After(50 * time.Millisecond):
	}
}

func newAgent(t *testing.T, h history.History, opts ...Option) *Agent[pageState] {
	t.Helper()
	a, err := New[pageState](h, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func connect(t *testing.T, a *Agent[pageState]) (*Bridge[pageState], *recorder[pageState]) {
	t.Helper()
	rec := newRecorder[pageState]()
	b, err := a.Bridge(context.Background(), rec.fn)
	if err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, rec
}

func send(t *testing.T, s interface {
	Send(context.Context, Request[pageState]) error
}, req Request[pageState]) {
	t.Helper()
	if err := s.Send(context.Background(), req); err != nil {
		t.Fatalf("Send(%s): %v", req.Kind, err)
	}
}

// roundTrip waits until every request queued before it has been handled.
func roundTrip(t *testing.T, b *Bridge[pageState], rec *recorder[pageState]) route.Route[pageState] {
	t.Helper()
	send(t, b, GetCurrentRoute[pageState]())
	return rec.next(t)
}

func TestChangeRouteBroadcastsToEverySubscriber(t *testing.T) {
	h := history.NewMemory("/a")
	a := newAgent(t, h)
	_, x := connect(t, a)
	_, y := connect(t, a)

	d, err := a.Dispatcher()
	if err != nil {
		t.Fatalf("Dispatcher: %v", err)
	}
	s1 := pageState{Tab: 1, Name: "one"}
	send(t, d, ChangeRoute(route.WithState("/b", s1)))

	want := route.WithState("/b", s1)
	for name, rec := range map[string]*recorder[pageState]{"x": x, "y": y} {
		if got := rec.next(t); !got.Equal(want) {
			t.Errorf("%s received %+v, want %+v", name, got, want)
		}
		rec.expectNone(t)
	}

	entries := h.Entries()
	if len(entries) != 2 || entries[0].URL != "/a" || entries[1].URL != "/b" {
		t.Errorf("history entries = %+v, want [/a /b]", entries)
	}
	if got := a.Canonical(); !got.Equal(want) {
		t.Errorf("Canonical() = %+v, want %+v", got, want)
	}
}

func TestReplaceRouteNoBroadcastThenGetCurrent(t *testing.T) {
	h := history.NewMemory("/a")
	a := newAgent(t, h)
	bx, x := connect(t, a)
	_, y := connect(t, a)

	s2 := pageState{Tab: 2}
	send(t, bx, ReplaceRouteNoBroadcast(route.WithState("/c", s2)))

	got := roundTrip(t, bx, x)
	if want := route.WithState("/c", s2); !got.Equal(want) {
		t.Errorf("GetCurrentRoute answered %+v, want %+v", got, want)
	}
	x.expectNone(t)
	y.expectNone(t)

	if h.Len() != 1 {
		t.Errorf("history length = %d, want 1", h.Len())
	}
	if path, _, _ := h.Location(); path != "/c" {
		t.Errorf("history path = %q, want /c", path)
	}
}

func TestReplaceRouteBroadcasts(t *testing.T) {
	h := history.NewMemory("/a")
	a := newAgent(t, h)
	bx, x := connect(t, a)

	send(t, bx, ReplaceRoute(route.New[pageState]("/r?q=1#f")))

	got := x.next(t)
	if want := route.WithState("/r?q=1#f", pageState{}); !got.Equal(want) {
		t.Errorf("received %+v, want %+v", got, want)
	}
	if h.Len() != 1 {
		t.Errorf("history length = %d, want 1", h.Len())
	}
}

func TestNoBroadcastVariantsNotifyNobody(t *testing.T) {
	h := history.NewMemory("/")
	a := newAgent(t, h)
	bx, x := connect(t, a)
	_, y := connect(t, a)

	send(t, bx, ChangeRouteNoBroadcast(route.WithState("/p", pageState{Tab: 5})))
	send(t, bx, ReplaceRouteNoBroadcast(route.WithState("/q", pageState{Tab: 6})))

	got := roundTrip(t, bx, x)
	if want := route.WithState("/q", pageState{Tab: 6}); !got.Equal(want) {
		t.Errorf("first message to requester = %+v, want the GetCurrentRoute answer %+v", got, want)
	}
	x.expectNone(t)
	y.expectNone(t)
	if h.Len() != 2 {
		t.Errorf("history length = %d, want 2", h.Len())
	}
}

func TestBroadcastOrder(t *testing.T) {
	h := history.NewMemory("/")
	a := newAgent(t, h)
	_, x := connect(t, a)
	_, y := connect(t, a)
	d, _ := a.Dispatcher()

	const n = 25
	for i := 0; i < n; i++ {
		send(t, d, ChangeRoute(route.WithState("/p", pageState{Tab: i})))
	}

	for _, rec := range []*recorder[pageState]{x, y} {
		for i := 0; i < n; i++ {
			if got := rec.next(t).StateOrDefault().Tab; got != i {
				t.Fatalf("broadcast %d carried tab %d", i, got)
			}
		}
		rec.expectNone(t)
	}
}

func TestBackNavigationBroadcastsDecodedState(t *testing.T) {
	h := history.NewMemory("/a")
	a := newAgent(t, h)
	bx, x := connect(t, a)
	_, y := connect(t, a)

	s0 := pageState{Tab: 9, Name: "zero"}
	send(t, bx, ChangeRouteNoBroadcast(route.WithState("/b?k=v", s0)))
	send(t, bx, ChangeRouteNoBroadcast(route.WithState("/c", pageState{Tab: 1})))
	roundTrip(t, bx, x)

	if !h.Back() {
		t.Fatal("Back failed")
	}

	want := route.WithState("/b?k=v", s0)
	for name, rec := range map[string]*recorder[pageState]{"x": x, "y": y} {
		if got := rec.next(t); !got.Equal(want) {
			t.Errorf("%s received %+v, want %+v", name, got, want)
		}
	}
}

func TestBackToEntryWithoutStateUsesDefault(t *testing.T) {
	h := history.NewMemory("/start")
	a := newAgent(t, h)
	bx, x := connect(t, a)

	send(t, bx, ChangeRouteNoBroadcast(route.WithState("/next", pageState{Tab: 3})))
	roundTrip(t, bx, x)
	h.Back()

	if got, want := x.next(t), route.WithState("/start", pageState{}); !got.Equal(want) {
		t.Errorf("received %+v, want %+v", got, want)
	}
}

func TestMalformedStateDegradesToDefault(t *testing.T) {
	h := history.NewMemory("/")
	_ = h.Replace("/m", "{not json")
	a := newAgent(t, h)
	bx, x := connect(t, a)

	if got, want := roundTrip(t, bx, x), route.WithState("/m", pageState{}); !got.Equal(want) {
		t.Errorf("GetCurrentRoute = %+v, want %+v", got, want)
	}

	_ = h.Push("/bad", "{")
	_ = h.Push("/z", `{"tab":1}`)
	h.Back()
	if got, want := x.next(t), route.WithState("/bad", pageState{}); !got.Equal(want) {
		t.Errorf("popstate broadcast = %+v, want %+v", got, want)
	}
}

func TestEncodeFailureStoresEmptyState(t *testing.T) {
	h := history.NewMemory("/")
	codec := route.CodecFuncs[pageState]{
		EncodeFunc: func(pageState) (string, error) { return "", errors.New("cannot encode") },
		DecodeFunc: route.JSONCodec[pageState]{}.Decode,
	}
	metrics := NewMetrics(nil)
	a := newAgent(t, h, WithCodec[pageState](codec), WithMetrics(metrics))
	bx, x := connect(t, a)

	send(t, bx, ChangeRoute(route.WithState("/e", pageState{Tab: 4})))
	if got, want := x.next(t), route.WithState("/e", pageState{}); !got.Equal(want) {
		t.Errorf("received %+v, want %+v", got, want)
	}
	if s, ok := h.State(); !ok || s != "" {
		t.Errorf("stored state = (%q, %v), want empty string", s, ok)
	}
	if got := metricCounterValue(t, metrics.codecErrors.WithLabelValues("encode")); got != 1 {
		t.Errorf("encode errors = %v, want 1", got)
	}
}

type failingHistory struct {
	*history.Memory
	err error
}

func (f *failingHistory) Push(url, state string) error { return f.err }

func TestAdapterWriteFailureStillBroadcasts(t *testing.T) {
	h := &failingHistory{Memory: history.NewMemory("/a"), err: errors.New("quota exceeded")}
	metrics := NewMetrics(nil)
	a := newAgent(t, h, WithMetrics(metrics))
	bx, x := connect(t, a)

	send(t, bx, ChangeRoute(route.WithState("/b", pageState{Tab: 1})))
	if got := x.next(t); got.Path != "/a" {
		t.Errorf("received path %q, want the re-read /a", got.Path)
	}
	if got := metricCounterValue(t, metrics.adapterErrors.WithLabelValues("push")); got != 1 {
		t.Errorf("adapter errors = %v, want 1", got)
	}
}

func TestDispatcherGetCurrentRouteIsDropped(t *testing.T) {
	a := newAgent(t, history.NewMemory("/"))
	bx, x := connect(t, a)
	d, _ := a.Dispatcher()

	send(t, d, GetCurrentRoute[pageState]())
	roundTrip(t, bx, x)
	x.expectNone(t)
}

func TestClosedBridgeReceivesNothing(t *testing.T) {
	a := newAgent(t, history.NewMemory("/"))
	bx, x := connect(t, a)
	by, y := connect(t, a)

	bx.Close()
	bx.Close()
	if err := bx.Send(context.Background(), GetCurrentRoute[pageState]()); !errors.Is(err, ErrClosed) {
		t.Errorf("Send on closed bridge = %v, want ErrClosed", err)
	}

	send(t, by, ChangeRoute(route.New[pageState]("/after")))
	if got := y.next(t); got.Path != "/after" {
		t.Errorf("y received %q", got.Path)
	}
	x.expectNone(t)
}

func TestCloseFromCallback(t *testing.T) {
	a := newAgent(t, history.NewMemory("/"))
	done := make(chan struct{})
	var b *Bridge[pageState]
	ready := make(chan struct{})
	b, err := a.Bridge(context.Background(), func(route.Route[pageState]) {
		<-ready
		b.Close()
		close(done)
	})
	if err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	close(ready)

	d, _ := a.Dispatcher()
	send(t, d, ChangeRoute(route.New[pageState]("/one")))
	send(t, d, ChangeRoute(route.New[pageState]("/two")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}
}

func TestBridgeClosesWithContext(t *testing.T) {
	a := newAgent(t, history.NewMemory("/"))
	ctx, cancel := context.WithCancel(context.Background())
	b, err := a.Bridge(ctx, func(route.Route[pageState]) {})
	if err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := b.Send(context.Background(), GetCurrentRoute[pageState]()); errors.Is(err, ErrClosed) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("bridge still open after context cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNilContextMeansBackground(t *testing.T) {
	a := newAgent(t, history.NewMemory("/start"))
	var ctx context.Context

	rec := newRecorder[pageState]()
	b, err := a.Bridge(ctx, rec.fn)
	if err != nil {
		t.Fatalf("Bridge(nil ctx): %v", err)
	}
	defer b.Close()

	if err := b.Send(ctx, GetCurrentRoute[pageState]()); err != nil {
		t.Fatalf("Bridge.Send(nil ctx): %v", err)
	}
	if got := rec.next(t); got.Path != "/start" {
		t.Errorf("path = %q, want /start", got.Path)
	}

	d, err := a.Dispatcher()
	if err != nil {
		t.Fatalf("Dispatcher: %v", err)
	}
	if err := d.Send(ctx, ChangeRoute(route.New[pageState]("/next"))); err != nil {
		t.Fatalf("Dispatcher.Send(nil ctx): %v", err)
	}
	if got := rec.next(t); got.Path != "/next" {
		t.Errorf("path = %q, want /next", got.Path)
	}
}

func TestNewRequiresHistory(t *testing.T) {
	if _, err := New[pageState](nil); !errors.Is(err, ErrAdapterUnavailable) {
		t.Errorf("New(nil) error = %v, want ErrAdapterUnavailable", err)
	}

	h := history.NewMemory("/")
	defer h.Close()
	_ = h.OnPopState(func(string, bool) {})
	_, err := New[pageState](h)
	if !errors.Is(err, ErrAdapterUnavailable) || !errors.Is(err, history.ErrCallbackRegistered) {
		t.Errorf("New with taken callback error = %v", err)
	}
}

func TestNewRejectsCodecOfOtherType(t *testing.T) {
	h := history.NewMemory("/")
	defer h.Close()
	if _, err := New[pageState](h, WithCodec[int](route.JSONCodec[int]{})); err == nil {
		t.Error("expected error for mismatched codec")
	}
}

func TestClosedAgent(t *testing.T) {
	a, err := New[pageState](history.NewMemory("/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, _ := a.Bridge(context.Background(), func(route.Route[pageState]) {})
	a.Close()
	a.Close()

	if err := b.Send(context.Background(), GetCurrentRoute[pageState]()); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after agent Close = %v, want ErrClosed", err)
	}
	if _, err := a.Bridge(context.Background(), func(route.Route[pageState]) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Bridge after Close = %v, want ErrClosed", err)
	}
	if _, err := a.Dispatcher(); !errors.Is(err, ErrClosed) {
		t.Errorf("Dispatcher after Close = %v, want ErrClosed", err)
	}
	b.Close()
}

func TestSendHonoursContext(t *testing.T) {
	a := newAgent(t, history.NewMemory("/"), WithInboxSize(1))
	d, _ := a.Dispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context either wins the race for inbox space or is
	// reported; it never blocks.
	if err := d.Send(ctx, GetCurrentRoute[pageState]()); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Send = %v", err)
	}
}
