package utils

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the "code" field of failure envelopes.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNoUpdates          = "NO_UPDATES"
	CodeNotAuthorized      = "NOT_AUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotFound           = "NOT_FOUND"
	CodeUserExists         = "USER_EXISTS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeRateLimited        = "RATE_LIMITED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternal           = "INTERNAL_ERROR"
)

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

type errorEnvelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes {"success":true,"data":...,"message":...}.
func Success(w http.ResponseWriter, status int, data interface{}, message string) {
	WriteJSON(w, status, successEnvelope{Success: true, Data: data, Message: message})
}

// Fail writes {"success":false,"error":...,"code":...}.
func Fail(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, errorEnvelope{Error: msg, Code: code})
}

// FailFields is Fail with per-field validation messages attached.
func FailFields(w http.ResponseWriter, status int, code, msg string, fields map[string]string) {
	WriteJSON(w, status, errorEnvelope{Error: msg, Code: code, Fields: fields})
}
