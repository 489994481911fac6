package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Mensagens devolvidas aos clientes. São parte do contrato público do gateway.
const (
	MsgForbiddenPath = "You are not allowed to see this page"
	MsgSuspended     = "IP is suspended. Try again later."
	MsgExceeded      = "Rate limit exceeded. Try again later."
	MsgInternal      = "internal server error"
	MsgBadGateway    = "bad gateway"
)

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

type detailBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteDetail responde {"detail": msg}; usado para falhas internas e de upstream.
func WriteDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detailBody{Detail: msg})
}

func writeForbiddenPath(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: MsgForbiddenPath})
}

func writeTooMany(w http.ResponseWriter, msg string, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", formatInt(int(retryAfter.Seconds())))
	}
	writeJSON(w, http.StatusTooManyRequests, messageBody{Message: msg})
}

// formatação de números para headers, sem notação científica
func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
