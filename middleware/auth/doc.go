// Package auth fornece o adapter HTTP (net/http) da verificação de token do
// gateway.
//
// Visão geral (camadas):
//
//   - domain: Principal, Surface e os contratos de cache e whoami
//   - application: Verifier (cache-aside + máquina de estados de verificação)
//   - infra: cache redis/memória e o adapter do whoami sobre o upstream client
//   - auth (este pacote): middleware de autenticação + invalidação no logout
//
// Fluxo no gateway:
//
//  1. Extrai o bearer token do Authorization
//  2. Verifier resolve token -> principal (cache primeiro, core no miss)
//  3. Falha vira envelope (401 sem/inválido; 503/504 do core propagados)
//  4. Sucesso põe o principal no contexto para os próximos handlers
package auth
