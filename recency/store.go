package recency

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"soundboard-gateway/observe"

	"github.com/dustin/go-humanize"
)

// DefaultCapacity é o máximo de itens mantidos.
const DefaultCapacity = 1000

var ErrEmptyKey = errors.New("recency: empty key")

// Item é um som tocado. Os nomes JSON são os do formato persistido.
type Item struct {
	Filename    string `json:"filename"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	PlayedAt    int64  `json:"playedAt"` // epoch em milissegundos
}

// Persister guarda a lista completa, do mais antigo para o mais recente.
type Persister interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

type Options struct {
	Capacity  int
	Persister Persister
	Now       func() time.Time
}

// Store é a lista ordenada de sons recentes.
type Store struct {
	mu       sync.Mutex
	order    []string // mais antigo primeiro
	items    map[string]Item
	capacity int
	persist  Persister
	now      func() time.Time

	changes observe.Hub[Item]
}

// New cria o Store e carrega o estado persistido uma única vez.
// Dados ausentes ou corrompidos resultam numa lista vazia (apenas logado).
func New(ctx context.Context, opts Options) *Store {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Store{
		items:    make(map[string]Item),
		capacity: opts.Capacity,
		persist:  opts.Persister,
		now:      opts.Now,
	}

	if s.persist == nil {
		return s
	}
	loaded, err := s.persist.Load(ctx)
	if err != nil {
		log.Printf("RECENT: failed to load persisted list, starting empty: %v", err)
		return s
	}
	for _, it := range loaded {
		if strings.TrimSpace(it.Filename) == "" {
			continue
		}
		if it.DisplayName == "" {
			it.DisplayName = DisplayName(it.Filename)
		}
		if it.Color == "" {
			it.Color = ColorFor(it.Filename)
		}
		s.putLocked(it)
	}
	if len(s.order) > 0 {
		log.Printf("RECENT: loaded %s items", humanize.Comma(int64(len(s.order))))
	}
	return s
}

// Record marca key como tocado agora.
//
// A lista em memória é sempre atualizada; um erro de persistência é devolvido
// para o chamador registrar, mas não desfaz a mutação.
func (s *Store) Record(ctx context.Context, key string) (Item, error) {
	if strings.TrimSpace(key) == "" {
		return Item{}, ErrEmptyKey
	}

	s.mu.Lock()
	it := Item{
		Filename:    key,
		DisplayName: DisplayName(key),
		Color:       ColorFor(key),
		PlayedAt:    s.now().UnixMilli(),
	}
	s.putLocked(it)

	var err error
	if s.persist != nil {
		err = s.persist.Save(ctx, s.oldestFirstLocked())
	}
	s.mu.Unlock()

	s.changes.Publish(it)
	return it, err
}

// putLocked remove a chave (se existir), anexa no fim e aplica a capacidade.
func (s *Store) putLocked(it Item) {
	if _, ok := s.items[it.Filename]; ok {
		for i, k := range s.order {
			if k == it.Filename {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.order = append(s.order, it.Filename)
	s.items[it.Filename] = it

	for len(s.order) > s.capacity {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Store) oldestFirstLocked() []Item {
	out := make([]Item, len(s.order))
	for i, k := range s.order {
		out[i] = s.items[k]
	}
	return out
}

// List devolve uma cópia, do mais recente para o mais antigo.
func (s *Store) List() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.order))
	for i, k := range s.order {
		out[len(s.order)-1-i] = s.items[k]
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// View é o formato de /recent.
type View struct {
	Sounds []Item `json:"sounds"`
	Count  int    `json:"count"`
}

func (s *Store) Snapshot() View {
	items := s.List()
	return View{Sounds: items, Count: len(items)}
}

// MarshalJSON serializa no formato {"sounds":[...],"count":n}.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// Subscribe registra um observador chamado após cada Record.
func (s *Store) Subscribe(fn func(Item)) (cancel func()) {
	return s.changes.Subscribe(fn)
}
