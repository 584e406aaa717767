// Package infra contém implementações concretas para os contratos do pacote
// domain da autenticação.
//
// Exemplos:
//   - RedisTokenCache: cache de principal com TTL (GET/SET/DEL atômicos)
//   - MemoryTokenCache: equivalente em memória, para testes/desenvolvimento
//   - UpstreamIdentityClient: resolve o principal no endpoint whoami do core
package infra
