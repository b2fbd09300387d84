// Package recency mantém a lista de sons tocados recentemente.
//
// A ordem é de inserção: tocar de novo um som o move para o fim (mais recente),
// e acima da capacidade o mais antigo inserido é descartado. Cada mudança é
// persistida junto com a mutação, sob o mesmo lock, e depois avisada aos observadores.
package recency
