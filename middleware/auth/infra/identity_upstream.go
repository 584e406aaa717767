package infra

import (
	"context"

	"bff-gateway/middleware/auth/domain"
	"bff-gateway/middleware/correlation"
	"bff-gateway/upstream"
)

// UpstreamIdentityClient implementa domain.IdentityClient chamando o
// endpoint whoami do core via upstream client.
//
// A classificação de falha (timeout, indisponível, 401) já vem pronta do
// client; aqui só se propaga o id de correlação do contexto.
type UpstreamIdentityClient struct {
	Client *upstream.Client

	// Path do whoami no core. Default: "/auth/me".
	Path string
}

func (c UpstreamIdentityClient) Identity(ctx context.Context, token string) (domain.Principal, error) {
	path := c.Path
	if path == "" {
		path = "/auth/me"
	}
	return upstream.Get[domain.Principal](ctx, c.Client, path,
		upstream.WithBearer(token),
		upstream.WithCorrelationID(correlation.FromContext(ctx)),
	)
}
