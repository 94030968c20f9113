// Package httputil holds the JSON response helpers shared by the API
// handlers and the admin debug routes.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[httputil] failed to encode json response: %v", err)
	}
}

// WriteJSONError writes the standard `{"error": msg}` body with the given
// status code. Every handler error in the service goes through here so
// clients can rely on the shape.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
