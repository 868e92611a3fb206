package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tjfontaine/sui-agent/internal/blob"
	"github.com/tjfontaine/sui-agent/internal/contacts"
	"github.com/tjfontaine/sui-agent/internal/domain"
	"github.com/tjfontaine/sui-agent/internal/seal"
)

type errorBody struct {
	Error *domain.APIError `json:"error"`
}

// toAPIError maps service errors onto the canonical API error. Decryption
// failures all collapse to one generic message so a caller cannot tell a
// wrong signature from a tampered record.
func toAPIError(err error) *domain.APIError {
	var apiErr *domain.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, seal.ErrDecryption):
		return domain.ErrPermission("unable to open the address book with this signature").
			WithCode(domain.ErrorCodeDecryptionFailed)
	case errors.Is(err, seal.ErrProofRequired):
		return domain.ErrInvalidRequest("signature is required").
			WithCode(domain.ErrorCodeProofRequired).WithParam("signature")
	case errors.Is(err, contacts.ErrNotFound):
		return domain.ErrNotFound("contact not found")
	case errors.Is(err, blob.ErrNotFound):
		return domain.ErrNotFound("ciphertext not found")
	case errors.Is(err, contacts.ErrInvalidContact):
		return domain.ErrInvalidRequest(err.Error()).WithParam("contact")
	}
	return domain.ErrServer("internal error")
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	writeJSON(w, apiErr.HTTPStatusCode(), errorBody{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
