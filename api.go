package oneblog

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type verifyEmailResponse struct {
	AvailableOperations AvailableOperations `json:"available_operations"`
}

// handleVerifyEmail reports which operations the verification form should offer for an email
func (a *App) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ops, err := Classify(r.Context(), a.Users, mux.Vars(r)["email"])
	if err != nil {
		a.serverError(w, r, "error classifying email", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verifyEmailResponse{AvailableOperations: ops})
}
