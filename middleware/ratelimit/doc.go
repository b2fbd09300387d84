// Package ratelimit fornece adapters HTTP (net/http) para a cota por cliente e o
// limite de concorrência do soundboard.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela deslizante, token bucket, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo em /play e /play-url:
//
//  1. Extrai a chave do cliente (host de RemoteAddr)
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, responde 429 JSON com used/limit/retryAfterSeconds
//  4. Se permitido, chama o próximo handler
//
// A configuração vem do pacote config (seção [rate_limit] e SOUNDBOARD_RATE_*).
package ratelimit
