package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o cliente (endereço de origem visto pelo transporte).
type Key string

// Policy é a política da janela deslizante: no máximo MaxRequests dentro de Window.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicy: 5 requisições a cada 10 minutos por cliente.
var DefaultPolicy = Policy{MaxRequests: 5, Window: 10 * time.Minute}

// WindowMinutes devolve a janela em minutos inteiros (formato exposto em /rate-limits).
func (p Policy) WindowMinutes() int {
	return int(p.Window / time.Minute)
}

type Decision struct {
	Allowed bool
	// Used é o tamanho da sequência do cliente depois da decisão
	// (inclui a requisição atual quando admitida).
	Used  int
	Limit int
	// RetryAfter é o tempo até o timestamp mais antigo sair da janela.
	// Zero quando permitido; em rejeição é sempre >= 1s e múltiplo de segundo.
	RetryAfter time.Duration
}

// RetryAfterSeconds é o valor exposto ao cliente (Retry-After / retryAfterSeconds).
func (d Decision) RetryAfterSeconds() int {
	return int(d.RetryAfter / time.Second)
}

// Quota é a visão somente leitura do consumo de um cliente na janela atual.
type Quota struct {
	Key   Key
	Used  int
	Limit int
}

// QuotaChange é entregue aos observadores quando uma admissão é registrada
// ou quando o toggle global muda.
type QuotaChange struct {
	Key     Key
	Used    int
	Limit   int
	Enabled bool
	At      time.Time
}

// QuotaStore decide e registra a admissão de forma atômica.
//
// Implementações devem manter decisão e registro na mesma seção crítica:
// duas requisições concorrentes do mesmo cliente não podem ambas ver "abaixo do limite".
type QuotaStore interface {
	CheckAndRecord(Key) Decision
}

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Observação: usado para o token-bucket de saída (golang.org/x/time/rate),
// não para a cota por cliente.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: host remoto).
type LimiterStore interface {
	Get(Key) Limiter
}
