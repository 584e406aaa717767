package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bff-gateway/envelope"
)

// HeaderCorrelationID propaga o id de correlação até o core.
const HeaderCorrelationID = "X-Correlation-Id"

// Client chama o core service. Seguro para uso concorrente: os headers são
// construídos por chamada, nunca compartilhados entre requests.
type Client struct {
	base       string
	http       *http.Client
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	log        logrus.FieldLogger
}

type Option func(*Client)

// WithTimeout define o deadline por tentativa. O contexto derivado cancela a
// chamada em andamento, não só a espera.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries define o número de novas tentativas para GET em falha de
// transporte, com atraso fixo entre tentativas. Métodos não idempotentes
// nunca são repetidos.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.retryDelay = delay
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		http:       &http.Client{},
		timeout:    5 * time.Second,
		retries:    0,
		retryDelay: 200 * time.Millisecond,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReqOption ajusta os headers de uma única chamada.
type ReqOption func(http.Header)

// WithBearer anexa Authorization: Bearer <token>. Token vazio não anexa nada.
func WithBearer(token string) ReqOption {
	return func(h http.Header) {
		if token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithCorrelationID anexa o id de correlação da requisição de origem.
func WithCorrelationID(id string) ReqOption {
	return func(h http.Header) {
		if id != "" {
			h.Set(HeaderCorrelationID, id)
		}
	}
}

// WithHeader anexa um header extra (ex: identificador de sessão do carrinho).
func WithHeader(key, value string) ReqOption {
	return func(h http.Header) {
		if key != "" && value != "" {
			h.Set(key, value)
		}
	}
}

// coreEnvelope é o shape de resposta do core:
// {"success":true,"data":...} ou {"success":false,"error":{code,message}}.
type coreEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *coreError      `json:"error"`
}

type coreError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// Do executa uma chamada e devolve o status e o payload de sucesso (campo
// data do envelope do core). Em falha devolve *envelope.Error já classificado.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, opts ...ReqOption) (int, json.RawMessage, error) {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var resp *http.Response
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && c.retryDelay > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return 0, nil, c.fail(method, path, ctx.Err())
			}
		}

		resp, lastErr = c.attempt(ctx, method, path, body, opts)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return 0, nil, c.fail(method, path, lastErr)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, c.fail(method, path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(raw) == 0 {
			// DELETE/POST sem corpo é sucesso
			return resp.StatusCode, nil, nil
		}
		var env coreEnvelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Success {
			return resp.StatusCode, env.Data, nil
		}
		// core respondeu 2xx fora do envelope; repassa o corpo cru
		return resp.StatusCode, raw, nil
	}

	// erro estruturado do core passa verbatim (preserva erros de negócio)
	var env coreEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && !env.Success && env.Error != nil && env.Error.Code != "" {
		passthrough := &envelope.Error{
			Status:     resp.StatusCode,
			Code:       env.Error.Code,
			Message:    env.Error.Message,
			RetryAfter: env.Error.RetryAfter,
		}
		c.logFailure(method, path, passthrough)
		return 0, nil, passthrough
	}

	wrapped := envelope.New(resp.StatusCode, envelope.CodeCoreError, "core api returned an unexpected error")
	c.logFailure(method, path, wrapped)
	return 0, nil, wrapped
}

// attempt faz uma única tentativa com deadline próprio. O request é montado
// do zero a cada tentativa para manter os headers puros.
func (c *Client) attempt(ctx context.Context, method, path string, body []byte, opts []ReqOption) (*http.Response, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req.Header)
	}

	resp, err := c.http.Do(req) //nolint:bodyclose // fechado pelo chamador
	if err != nil {
		return nil, err
	}

	// com timeout > 0 o deadline do attemptCtx morre neste return; o corpo
	// precisa ser lido antes. Lê aqui e devolve um corpo em memória.
	if c.timeout > 0 {
		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		resp.Body = io.NopCloser(bytes.NewReader(raw))
	}
	return resp, nil
}

// fail classifica uma falha de transporte em erro tipado e loga a causa crua.
func (c *Client) fail(method, path string, cause error) error {
	var typed *envelope.Error
	switch {
	case errors.Is(cause, context.DeadlineExceeded) || isTimeout(cause):
		typed = envelope.Wrap(http.StatusGatewayTimeout, envelope.CodeCoreTimeout, "core api timed out", cause)
	case errors.Is(cause, context.Canceled):
		typed = envelope.Wrap(http.StatusInternalServerError, envelope.CodeInternal, "request canceled", cause)
	case isConnError(cause):
		typed = envelope.Wrap(http.StatusServiceUnavailable, envelope.CodeCoreUnavailable, "core api unreachable", cause)
	default:
		typed = envelope.Wrap(http.StatusInternalServerError, envelope.CodeInternal, "internal error", cause)
	}
	c.logFailure(method, path, typed)
	return typed
}

func (c *Client) logFailure(method, path string, err *envelope.Error) {
	if c.log == nil {
		return
	}
	entry := c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"code":   err.Code,
		"status": err.Status,
	})
	if err.Cause != nil {
		entry = entry.WithField("cause", err.Cause.Error())
	}
	entry.Warn("upstream call failed")
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isConnError(err error) bool {
	var oe *net.OpError
	if errors.As(err, &oe) {
		return true
	}
	var de *net.DNSError
	if errors.As(err, &de) {
		return true
	}
	// conexão fechada no meio da resposta (EOF e afins) conta como
	// inalcançável: não houve resposta utilizável
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Get executa GET e devolve o payload cru.
func (c *Client) Get(ctx context.Context, path string, opts ...ReqOption) (json.RawMessage, error) {
	_, data, err := c.Do(ctx, http.MethodGet, path, nil, opts...)
	return data, err
}

// Post executa POST com corpo JSON (nil = sem corpo).
func (c *Client) Post(ctx context.Context, path string, body []byte, opts ...ReqOption) (json.RawMessage, error) {
	_, data, err := c.Do(ctx, http.MethodPost, path, body, opts...)
	return data, err
}

// Put executa PUT com corpo JSON (nil = sem corpo).
func (c *Client) Put(ctx context.Context, path string, body []byte, opts ...ReqOption) (json.RawMessage, error) {
	_, data, err := c.Do(ctx, http.MethodPut, path, body, opts...)
	return data, err
}

// Delete executa DELETE. Resposta sem corpo é sucesso normal.
func (c *Client) Delete(ctx context.Context, path string, opts ...ReqOption) (json.RawMessage, error) {
	_, data, err := c.Do(ctx, http.MethodDelete, path, nil, opts...)
	return data, err
}

// Get decodifica o payload de sucesso direto em T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...ReqOption) (T, error) {
	var out T
	data, err := c.Get(ctx, path, opts...)
	if err != nil {
		return out, err
	}
	return decode[T](data)
}

// Post decodifica o payload de sucesso direto em T. body é serializado como
// JSON; nil envia sem corpo.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...ReqOption) (T, error) {
	var out T
	raw, err := marshalBody(body)
	if err != nil {
		return out, err
	}
	data, err := c.Post(ctx, path, raw, opts...)
	if err != nil {
		return out, err
	}
	return decode[T](data)
}

// Put decodifica o payload de sucesso direto em T.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...ReqOption) (T, error) {
	var out T
	raw, err := marshalBody(body)
	if err != nil {
		return out, err
	}
	data, err := c.Put(ctx, path, raw, opts...)
	if err != nil {
		return out, err
	}
	return decode[T](data)
}

// Delete decodifica o payload de sucesso direto em T.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...ReqOption) (T, error) {
	var out T
	data, err := c.Delete(ctx, path, opts...)
	if err != nil {
		return out, err
	}
	return decode[T](data)
}

func marshalBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, envelope.Wrap(http.StatusInternalServerError, envelope.CodeInternal, "failed to encode request body", err)
		}
		return raw, nil
	}
}

func decode[T any](data json.RawMessage) (T, error) {
	var out T
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, envelope.Wrap(http.StatusInternalServerError, envelope.CodeInternal, "failed to decode core api response", err)
	}
	return out, nil
}
