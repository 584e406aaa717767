package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	authdomain "bff-gateway/middleware/auth/domain"
	"bff-gateway/middleware/ratelimit/domain"
)

// IdentityFunc extrai a identidade a limitar de uma requisição.
type IdentityFunc func(r *http.Request) domain.Identity

// ByIP identifica o chamador pelo IP de origem.
//
// Prioridade: header explícito (se configurado) > primeiro IP do
// X-Forwarded-For (se confiável) > host do RemoteAddr.
func ByIP(keyHeader string, trustXFF bool) IdentityFunc {
	return func(r *http.Request) domain.Identity {
		return domain.Identity{Type: domain.IdentifierIP, Value: clientIP(r, keyHeader, trustXFF)}
	}
}

// ByUser identifica o chamador pelo id do principal autenticado no contexto.
// Sem principal (rota mal encadeada ou auth opcional), cai no fallback por IP
// para a rota não ficar sem limite.
func ByUser(fallback IdentityFunc) IdentityFunc {
	if fallback == nil {
		fallback = ByIP("", false)
	}
	return func(r *http.Request) domain.Identity {
		if p, ok := authdomain.FromContext(r.Context()); ok {
			return domain.Identity{
				Type:  domain.IdentifierUser,
				Value: strconv.FormatInt(p.ID, 10),
			}
		}
		return fallback(r)
	}
}

func clientIP(r *http.Request, keyHeader string, trustXFF bool) string {
	if keyHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
			return v
		}
	}

	if trustXFF {
		// pega o primeiro IP do X-Forwarded-For (cliente original)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				if ip := strings.TrimSpace(parts[0]); ip != "" {
					return ip
				}
			}
		}
	}

	// fallback: RemoteAddr
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
