// Package playback controla a reprodução de um único som por vez.
//
// O Engine é uma pequena máquina de estados (idle → preparing → playing → idle),
// com uma sessão identificada por uuid. Preparar e tocar rodam fora da goroutine
// de quem chamou; as continuações voltam ao lock do Engine e são ignoradas quando
// a sessão delas já não é a atual (um Stop ou um Play mais novo venceu).
package playback

import (
	"context"
	"time"
)

type State int

const (
	StateIdle State = iota
	StatePreparing
	StatePlaying
	// StateError é transitório: publicado aos observadores e logo volta a idle.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transition é entregue aos observadores a cada mudança de estado.
type Transition struct {
	Session string
	Locator string
	From    State
	To      State
	Err     error
	At      time.Time
}

// Backend prepara uma fonte de áudio. Prepare pode bloquear (download, decodificação).
type Backend interface {
	Prepare(ctx context.Context, locator string) (Track, error)
}

// Track é um áudio pronto para tocar.
type Track interface {
	// Play bloqueia até o fim do áudio ou até ctx ser cancelado.
	// Cancelamento não é erro.
	Play(ctx context.Context) error
	Close() error
}
