package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend controla quando Prepare e Play terminam.
type fakeBackend struct {
	mu       sync.Mutex
	prepared []string
	prepErr  error
	ready    chan struct{} // fechado libera Prepare
	finish   chan error    // cada valor encerra um Play
	closed   bool
	tracks   []*fakeTrack
}

func newFakeBackend() *fakeBackend {
	ready := make(chan struct{})
	close(ready)
	return &fakeBackend{ready: ready, finish: make(chan error, 8)}
}

func (b *fakeBackend) Prepare(ctx context.Context, locator string) (Track, error) {
	select {
	case <-b.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prepared = append(b.prepared, locator)
	if b.prepErr != nil {
		return nil, b.prepErr
	}
	t := &fakeTrack{b: b}
	b.tracks = append(b.tracks, t)
	return t, nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

type fakeTrack struct {
	b      *fakeBackend
	mu     sync.Mutex
	closed bool
}

func (t *fakeTrack) Play(ctx context.Context) error {
	select {
	case err := <-t.b.finish:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (t *fakeTrack) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

type recorder struct {
	mu sync.Mutex
	ts []Transition
}

func (r *recorder) add(t Transition) {
	r.mu.Lock()
	r.ts = append(r.ts, t)
	r.mu.Unlock()
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.ts))
	for i, t := range r.ts {
		out[i] = t.To
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

const loc = "https://www.myinstants.com/media/sounds/bar.mp3"

func TestEngine_PlayReachesPlayingThenIdle(t *testing.T) {
	b := newFakeBackend()
	e := NewEngine(b)
	defer e.Close()

	var rec recorder
	e.Subscribe(rec.add)

	if err := e.Play(loc); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, e.IsPlaying)

	b.finish <- nil
	waitFor(t, func() bool { return len(rec.states()) == 3 })

	got := rec.states()
	want := []State{StatePreparing, StatePlaying, StateIdle}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEngine_PrepareErrorGoesThroughErrorToIdle(t *testing.T) {
	b := newFakeBackend()
	b.prepErr = errors.New("codec")
	e := NewEngine(b)
	defer e.Close()

	var rec recorder
	e.Subscribe(rec.add)

	if err := e.Play(loc); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, func() bool { return len(rec.states()) == 3 })

	got := rec.states()
	if got[1] != StateError || got[2] != StateIdle {
		t.Fatalf("expected preparing, error, idle; got %v", got)
	}
	if e.IsPlaying() || e.State() != StateIdle {
		t.Fatalf("expected idle after error")
	}
}

func TestEngine_PlaybackErrorResetsToIdle(t *testing.T) {
	b := newFakeBackend()
	e := NewEngine(b)
	defer e.Close()

	e.Play(loc)
	waitFor(t, e.IsPlaying)
	b.finish <- errors.New("broken stream")
	waitFor(t, func() bool { return e.State() == StateIdle })
}

func TestEngine_StopDuringPrepareIgnoresLateReady(t *testing.T) {
	b := newFakeBackend()
	b.ready = make(chan struct{})
	e := NewEngine(b)
	defer e.Close()

	e.Play(loc)
	if e.State() != StatePreparing {
		t.Fatalf("expected preparing, got %s", e.State())
	}
	e.Stop()
	close(b.ready)

	time.Sleep(10 * time.Millisecond)
	if e.IsPlaying() || e.State() != StateIdle {
		t.Fatalf("expected stale prepare to be ignored, state=%s", e.State())
	}
}

func TestEngine_NewPlayReplacesSession(t *testing.T) {
	b := newFakeBackend()
	e := NewEngine(b)
	defer e.Close()

	var rec recorder
	e.Subscribe(rec.add)

	e.Play(loc)
	waitFor(t, e.IsPlaying)
	e.Play("https://www.myinstants.com/media/sounds/foo.mp3")
	waitFor(t, e.IsPlaying)

	rec.mu.Lock()
	sessions := map[string]bool{}
	for _, tr := range rec.ts {
		sessions[tr.Session] = true
	}
	rec.mu.Unlock()
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(sessions))
	}

	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.tracks[0].closedNow()
	})
}

func (t *fakeTrack) closedNow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func TestEngine_InvalidLocator(t *testing.T) {
	e := NewEngine(newFakeBackend())
	defer e.Close()

	for _, l := range []string{"", "bar.mp3", "ftp://host/x.mp3", "http://"} {
		if err := e.Play(l); !errors.Is(err, ErrInvalidLocator) {
			t.Errorf("Play(%q): expected ErrInvalidLocator, got %v", l, err)
		}
	}
	if e.State() != StateIdle {
		t.Fatalf("expected idle after rejected locators")
	}
}

func TestEngine_CloseStopsAndReleasesBackend(t *testing.T) {
	b := newFakeBackend()
	e := NewEngine(b)

	e.Play(loc)
	waitFor(t, e.IsPlaying)
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if e.IsPlaying() {
		t.Fatalf("expected not playing after close")
	}
	if !b.closed {
		t.Fatalf("expected backend to be closed")
	}
	if err := e.Play(loc); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestEngine_IsPlayingOnNilEngineIsFalse(t *testing.T) {
	var e *Engine
	if e.IsPlaying() {
		t.Fatalf("expected false")
	}
}

func TestEngine_ConcurrentPlayStopNeverLeavesPhantomPlaying(t *testing.T) {
	b := newFakeBackend()
	e := NewEngine(b)
	defer e.Close()

	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = e.Play(loc)
		}()
		go func() {
			defer wg.Done()
			e.Stop()
		}()
		wg.Wait()

		e.mu.Lock()
		phantom := e.state == StatePlaying && e.current == nil
		e.mu.Unlock()
		if phantom {
			t.Fatalf("iteration %d: playing without an active session", i)
		}
		e.Stop()
		if e.IsPlaying() {
			t.Fatalf("iteration %d: playing after final stop", i)
		}
	}
}
