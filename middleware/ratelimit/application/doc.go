// Package application contém os casos de uso do rate limit do gateway.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: FixedWindowService.Decide(ctx, identity, endpoint) retorna uma
// Decision (allow/deny + headers + retry-after).
package application
