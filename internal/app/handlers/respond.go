package handlers

import (
	"encoding/json"
	"net/http"
)

// writeJSON сериализует ответ; ошибки кодирования здесь уже не исправить,
// поэтому они молча игнорируются после записи заголовка.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отвечает JSON-объектом {"error": ...}, как и остальной API.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
