package utils

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Ternary es un operador ternario genérico
func Ternary[T any](condition bool, ifTrue, ifFalse T) T {
	if condition {
		return ifTrue
	}
	return ifFalse
}

// UnmarshalAndHandle decodifica el Data de un evento de integración en T y
// llama a handler. Un payload inválido se registra y se descarta.
func UnmarshalAndHandle[T any](log *zap.Logger, eventType string, data json.RawMessage, handler func(T)) bool {
	var evt T
	if len(data) == 0 {
		log.Warn("Empty event data", zap.String("type", eventType))
		return false
	}
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Warn("Failed to unmarshal event data", zap.String("type", eventType), zap.Error(err))
		return false
	}
	handler(evt)
	return true
}
