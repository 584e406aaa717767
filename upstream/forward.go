package upstream

import (
	"io"
	"net/http"
	"strings"

	"bff-gateway/envelope"
)

// HeaderSession identifica a sessão do carrinho/checkout e é repassado
// verbatim para o core quando presente.
const HeaderSession = "X-Session-Id"

// maxForwardBody limita o corpo aceito para repasse (1 MiB). O BFF não tem
// endpoint legítimo com corpo maior que isso.
const maxForwardBody = 1 << 20

// Forwarder repassa a requisição do browser para o core service via Client
// e devolve a resposta no envelope estável.
//
// O token do chamador (Authorization), o id de correlação e o header de
// sessão são propagados explicitamente; nada é inferido do path.
type Forwarder struct {
	Client *Client

	// StripPrefix é removido do path antes do repasse (ex: "/api").
	StripPrefix string

	// CorrelationID extrai o id de correlação da requisição de origem.
	// Se nil, usa o header X-Correlation-Id direto.
	CorrelationID func(r *http.Request) string
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if f.StripPrefix != "" {
		path = strings.TrimPrefix(path, f.StripPrefix)
		if path == "" || !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxForwardBody+1))
		if err != nil {
			envelope.Write(w, envelope.Wrap(http.StatusInternalServerError, envelope.CodeInternal, "failed to read request body", err))
			return
		}
		if len(body) > maxForwardBody {
			envelope.Write(w, envelope.New(http.StatusRequestEntityTooLarge, envelope.CodeInternal, "request body too large"))
			return
		}
	}

	correlationID := ""
	if f.CorrelationID != nil {
		correlationID = f.CorrelationID(r)
	} else {
		correlationID = r.Header.Get(HeaderCorrelationID)
	}

	opts := []ReqOption{
		WithBearer(BearerToken(r)),
		WithCorrelationID(correlationID),
		WithHeader(HeaderSession, r.Header.Get(HeaderSession)),
	}

	status, data, err := f.Client.Do(r.Context(), r.Method, path, body, opts...)
	if err != nil {
		envelope.Write(w, err)
		return
	}
	envelope.WriteData(w, status, data)
}

// BearerToken extrai o token do header Authorization ("Bearer <token>").
// Devolve vazio quando ausente ou malformado.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
