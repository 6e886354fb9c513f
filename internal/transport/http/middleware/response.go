package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes a rejection in the wire envelope with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "reason": reason})
}
