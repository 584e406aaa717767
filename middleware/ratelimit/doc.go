// Package ratelimit fornece os adapters HTTP (net/http) do limite de
// requisições e do limite de concorrência do gateway.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (janela fixa distribuída, token bucket local,
//     acquire/timeout de concorrência) sem net/http
//   - infra: implementações concretas (contador redis com INCR+EXPIRE
//     atômico, janela fixa em memória, token bucket, estatísticas, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração de identidade +
//     tradução da Decision para status/headers/envelope
//
// Fluxo no gateway:
//
//  1. Extrai a identidade do chamador (IP ou usuário autenticado)
//  2. Chama a camada application para obter a Decision
//  3. Sempre escreve os headers X-RateLimit-Limit/Remaining/Reset
//  4. Se bloqueado, responde 429 com o envelope RATE_LIMIT_EXCEEDED e
//     retryAfter igual à janela
//  5. Se permitido (inclusive fail-open com a store fora), chama o próximo
//     handler
package ratelimit
