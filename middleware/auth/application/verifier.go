package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"bff-gateway/envelope"
	"bff-gateway/middleware/auth/domain"
)

// cacheKeyHashLen é o tamanho (em caracteres hex) do hash do token usado na
// chave de cache. Fixo: a chave nunca carrega o token cru nem parte dele.
const cacheKeyHashLen = 32

// Verifier resolve um bearer token no principal dono dele, consultando o
// cache antes do core (cache-aside).
//
// Semântica de revogação: o TTL é curto e Invalidate apaga a entrada de
// forma síncrona no logout, então um token revogado para de ser servido do
// cache imediatamente, não só quando o TTL vence.
type Verifier struct {
	Cache   domain.TokenCache
	Client  domain.IdentityClient
	Surface domain.Surface
	TTL     time.Duration
	Log     logrus.FieldLogger
}

// CacheKey deriva a chave de cache do token: hash one-way de tamanho fixo,
// com namespace por superfície (customer/admin) para os dois espaços de
// principal nunca colidirem.
func (v Verifier) CacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:" + string(v.Surface) + ":" + hex.EncodeToString(sum[:])[:cacheKeyHashLen]
}

// Verify resolve o token em um principal.
//
// Máquina de estados:
//
//	sem token                      -> 401 BFF_UNAUTHORIZED
//	cache hit                      -> autenticado
//	cache miss -> core 2xx         -> autenticado + grava cache
//	cache miss -> core 401/403     -> 401 BFF_INVALID_TOKEN
//	cache miss -> core 5xx/timeout -> propaga a falha inalterada
//
// A distinção do último caso importa: "core fora do ar" não pode virar
// "você não está logado"; o browser trata os dois de formas diferentes.
func (v Verifier) Verify(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, envelope.New(http.StatusUnauthorized, envelope.CodeUnauthorized, "missing bearer token")
	}

	key := v.CacheKey(token)

	if v.Cache != nil {
		raw, ok, err := v.Cache.Get(ctx, key)
		if err != nil {
			// cache fora degrada para miss; nunca bloqueia a requisição
			v.logWarn(err, "token cache read failed, treating as miss")
		} else if ok {
			var p domain.Principal
			uerr := json.Unmarshal(raw, &p)
			if uerr == nil {
				return p, nil
			}
			// entrada corrompida: ignora e revalida no core
			v.logWarn(uerr, "corrupt token cache entry, revalidating")
		}
	}

	p, err := v.Client.Identity(ctx, token)
	if err != nil {
		var e *envelope.Error
		if errors.As(err, &e) && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden) {
			return domain.Principal{}, envelope.New(http.StatusUnauthorized, envelope.CodeInvalidToken, "invalid or expired token")
		}
		return domain.Principal{}, err
	}

	if v.Cache != nil {
		if raw, err := json.Marshal(p); err == nil {
			if err := v.Cache.Set(ctx, key, raw, v.TTL); err != nil {
				v.logWarn(err, "token cache write failed")
			}
		}
	}
	return p, nil
}

// Invalidate apaga a entrada de cache do token. Chamado de forma síncrona no
// logout, antes da resposta, para uma repetição da mesma requisição não
// enxergar um hit "ainda autenticado".
func (v Verifier) Invalidate(ctx context.Context, token string) error {
	if token == "" || v.Cache == nil {
		return nil
	}
	return v.Cache.Del(ctx, v.CacheKey(token))
}

func (v Verifier) logWarn(err error, msg string) {
	if v.Log == nil {
		return
	}
	v.Log.WithField("surface", string(v.Surface)).WithError(err).Warn(msg)
}
