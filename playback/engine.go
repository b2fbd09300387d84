package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	"soundboard-gateway/observe"

	"github.com/google/uuid"
)

var (
	ErrClosed         = errors.New("playback: engine closed")
	ErrInvalidLocator = errors.New("playback: invalid locator")
)

type Engine struct {
	mu      sync.Mutex
	backend Backend
	state   State
	current *session
	closed  bool
	now     func() time.Time

	wg      sync.WaitGroup
	changes observe.Hub[Transition]
}

type session struct {
	id      string
	locator string
	cancel  context.CancelFunc
}

type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(backend Backend, opts ...EngineOption) *Engine {
	e := &Engine{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Play encerra a sessão atual (se houver) e inicia uma nova para locator.
// Retorna imediatamente; falhas de preparo ou reprodução chegam pelos observadores.
func (e *Engine) Play(locator string) error {
	if err := validateLocator(locator); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	var out []Transition
	if t, ok := e.teardownLocked(); ok {
		out = append(out, t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{id: uuid.NewString(), locator: locator, cancel: cancel}
	e.current = sess
	out = append(out, e.setLocked(sess, StatePreparing, nil))
	e.wg.Add(1)
	e.mu.Unlock()

	e.publish(out...)
	go e.run(ctx, sess)
	return nil
}

func (e *Engine) run(ctx context.Context, sess *session) {
	defer e.wg.Done()
	defer sess.cancel()

	track, err := e.backend.Prepare(ctx, sess.locator)

	e.mu.Lock()
	if e.current != sess {
		e.mu.Unlock()
		if track != nil {
			_ = track.Close()
		}
		return
	}
	if err != nil {
		out := e.failLocked(sess, err)
		e.mu.Unlock()
		e.publish(out...)
		return
	}
	t := e.setLocked(sess, StatePlaying, nil)
	e.mu.Unlock()
	e.publish(t)

	err = track.Play(ctx)
	if cerr := track.Close(); cerr != nil {
		log.Printf("PLAYBACK: release track %s: %v", sess.id, cerr)
	}
	if ctx.Err() != nil {
		// parado por Stop/Play/Close; a transição já foi publicada
		err = nil
	}

	e.mu.Lock()
	if e.current != sess {
		e.mu.Unlock()
		return
	}
	var out []Transition
	if err != nil {
		out = e.failLocked(sess, err)
	} else {
		out = append(out, e.setLocked(sess, StateIdle, nil))
		e.current = nil
	}
	e.mu.Unlock()
	e.publish(out...)
}

// Stop encerra a sessão atual. Sem sessão é no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	t, ok := e.teardownLocked()
	e.mu.Unlock()
	if ok {
		e.publish(t)
	}
}

// IsPlaying nunca propaga pânico; qualquer falha na consulta vira false.
func (e *Engine) IsPlaying() (playing bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PLAYBACK: state query failed: %v", r)
			playing = false
		}
	}()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StatePlaying && e.current != nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Close encerra a sessão, espera as goroutines de reprodução e libera o backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	t, ok := e.teardownLocked()
	e.mu.Unlock()
	if ok {
		e.publish(t)
	}

	e.wg.Wait()
	if c, ok := e.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (e *Engine) Subscribe(fn func(Transition)) (cancel func()) {
	return e.changes.Subscribe(fn)
}

func (e *Engine) teardownLocked() (Transition, bool) {
	sess := e.current
	if sess == nil {
		return Transition{}, false
	}
	sess.cancel()
	t := e.setLocked(sess, StateIdle, nil)
	e.current = nil
	return t, true
}

// failLocked publica error e volta a idle na mesma seção crítica.
func (e *Engine) failLocked(sess *session, err error) []Transition {
	out := []Transition{
		e.setLocked(sess, StateError, err),
		e.setLocked(sess, StateIdle, nil),
	}
	e.current = nil
	return out
}

func (e *Engine) setLocked(sess *session, to State, err error) Transition {
	t := Transition{
		Session: sess.id,
		Locator: sess.locator,
		From:    e.state,
		To:      to,
		Err:     err,
		At:      e.now(),
	}
	e.state = to
	return t
}

func (e *Engine) publish(ts ...Transition) {
	for _, t := range ts {
		if t.Err != nil {
			log.Printf("PLAYBACK: %s %s -> %s: %v", t.Session, t.From, t.To, t.Err)
		}
		e.changes.Publish(t)
	}
}

func validateLocator(locator string) error {
	u, err := url.Parse(locator)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return nil
}
