// Package observe implementa o fan-out de eventos de mudança (observadores).
//
// A lista de inscritos é copiada sob o lock e os callbacks rodam fora dele,
// então um observador lento ou que chame de volta o componente de origem
// não bloqueia nem causa deadlock no caminho de mutação.
package observe

import "sync"

// Hub entrega eventos do tipo T para todos os inscritos. O valor zero é utilizável.
type Hub[T any] struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(T)
}

// Subscribe registra fn e devolve a função de cancelamento (idempotente).
func (h *Hub[T]) Subscribe(fn func(T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[uint64]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish chama cada inscrito com v. Não segura o lock durante os callbacks.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	if len(h.subs) == 0 {
		h.mu.Unlock()
		return
	}
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len devolve o número de inscritos ativos.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
