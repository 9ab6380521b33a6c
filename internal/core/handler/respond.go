package handler

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error       string `json:"error"`
	Transaction any    `json:"transaction,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// respondWithJSONError attaches the terminal transaction record to an error
// response so the caller can see where the payment ended up.
func respondWithJSONError(w http.ResponseWriter, code int, message string, tx any) {
	respondWithJSON(w, code, errorResponse{Error: message, Transaction: tx})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error"}`)) // Fallback response
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
