// Package handler contains the HTTP handlers for the agent's API: webhook
// notification ingest, position listing, health, and runtime stats.
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodySize bounds the size of accepted request bodies.
const maxBodySize = 1 << 20 // 1 MiB

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON strictly decodes the request body into v, rejecting unknown
// fields and trailing garbage.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("handler: decode body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("handler: unexpected trailing data")
	}
	return nil
}
