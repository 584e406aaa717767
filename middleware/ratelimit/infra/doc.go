// Package infra contém implementações concretas para os contratos definidos
// no pacote domain.
//
// Exemplos:
//   - RedisCounterStore: contador de janela fixa com INCR+EXPIRE atômico (Lua)
//   - MemoryCounterStore: janela fixa em memória, para testes/desenvolvimento
//   - LocalStore: token bucket por chave usando golang.org/x/time/rate
//   - RedisStatsStore / MemoryStatsStore: estatísticas de decisão
//   - ChanPool: semáforo simples para limite de concorrência
package infra
