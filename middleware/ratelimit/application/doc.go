// Package application decide admissões sem conhecer net/http.
//
// Service.Decide aplica a cota por cliente e registra a decisão nas estatísticas;
// ConcurrencyService controla as vagas de atendimento simultâneo.
package application
