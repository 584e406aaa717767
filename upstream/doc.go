// Package upstream é o ponto único de saída para o core service.
//
// Visão geral:
//
//   - Client: chamadas GET/POST/PUT/DELETE com timeout por tentativa,
//     retry limitado (somente GET) e classificação de falha na origem
//   - Get/Post/Put/Delete genéricos: decodificam o payload de sucesso
//     direto no tipo do chamador
//   - Forwarder: http.Handler que repassa a requisição do browser para o
//     core via Client, preservando o envelope e o status
//
// Contrato de classificação (nesta ordem):
//
//  1. erro estruturado do core ({"success":false,"error":{code,...}}) passa
//     verbatim, com o status original (preserva erros de negócio)
//  2. qualquer outro status de erro vira BFF_CORE_API_ERROR nesse status
//  3. core inalcançável (conexão recusada, DNS, retries esgotados) vira
//     BFF_CORE_API_UNAVAILABLE 503
//  4. deadline estourado vira BFF_CORE_API_TIMEOUT 504
//  5. o resto vira BFF_INTERNAL_ERROR 500
//
// Toda falha é logada com método, path e causa crua antes de subir tipada.
package upstream
