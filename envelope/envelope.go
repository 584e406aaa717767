// Package envelope define o formato de erro estável que o gateway devolve ao
// browser e o tipo de erro que atravessa as camadas internas.
//
// O shape na wire é fixo e não deve mudar entre versões:
//
//	{"success":false,"error":{"code":"...","message":"...","retryAfter":60}}
//
// `retryAfter` só aparece quando > 0. O cliente web faz branch em error.code,
// então os códigos são contrato, não texto livre.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Códigos da taxonomia de erro do gateway.
//
// Erros de negócio do core (ex: EMAIL_ALREADY_EXISTS) NÃO entram aqui:
// eles são repassados verbatim pelo upstream client, com o status original.
const (
	CodeUnauthorized    = "BFF_UNAUTHORIZED"         // 401: nenhum token apresentado
	CodeInvalidToken    = "BFF_INVALID_TOKEN"        // 401: token presente mas inválido/expirado
	CodeCoreUnavailable = "BFF_CORE_API_UNAVAILABLE" // 503: core inalcançável
	CodeCoreTimeout     = "BFF_CORE_API_TIMEOUT"     // 504: core estourou o deadline
	CodeCoreError       = "BFF_CORE_API_ERROR"       // status do core: resposta de erro não estruturada
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"      // 429: estourou a janela de rate limit
	CodeOverloaded      = "BFF_OVERLOADED"           // 503: limite local de concorrência
	CodeInternal        = "BFF_INTERNAL_ERROR"       // 500: qualquer coisa não classificada
)

// Error é a falha tipada usada em todo o gateway.
//
// Status e Cause não são serializados; o que vai na wire é sempre o shape
// produzido por Write.
type Error struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int // segundos; 0 = omitido na serialização

	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New cria um erro tipado. Status 0 vira 500.
func New(status int, code, message string) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap cria um erro tipado preservando a causa original para logs/errors.As.
func Wrap(status int, code, message string, cause error) *Error {
	e := New(status, code, message)
	e.Cause = cause
	return e
}

// RateLimited cria o erro padrão de rate limit com a dica de retry em segundos.
func RateLimited(retryAfterSeconds int) *Error {
	e := New(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
	e.RetryAfter = retryAfterSeconds
	return e
}

// From converte um erro qualquer em *Error.
//
// Erros já tipados passam direto; o resto vira BFF_INTERNAL_ERROR 500,
// preservando a causa. A classificação fina (timeout, indisponível, etc.)
// acontece perto da origem, no upstream client; aqui é só a rede de proteção.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Status == 0 {
			e.Status = http.StatusInternalServerError
		}
		return e
	}
	return Wrap(http.StatusInternalServerError, CodeInternal, "internal error", err)
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

type failureEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type successEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Write serializa qualquer erro no shape estável e escreve status + body.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	if e == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(failureEnvelope{
		Success: false,
		Error: errorBody{
			Code:       e.Code,
			Message:    e.Message,
			RetryAfter: e.RetryAfter,
		},
	})
}

// WriteData escreve a resposta de sucesso {"success":true,"data":...}.
// data=nil vira data:null (respostas sem corpo do core continuam válidas).
func WriteData(w http.ResponseWriter, status int, data json.RawMessage) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data})
}
