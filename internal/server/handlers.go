package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tjfontaine/sui-agent/internal/agent"
	"github.com/tjfontaine/sui-agent/internal/domain"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Chatter answers one chat turn.
type Chatter interface {
	Chat(ctx context.Context, req agent.ChatRequest) agent.ChatResponse
}

// ContactBook is the address book as the HTTP API uses it. Every write
// must carry a signature that opens the owner's existing contacts.
type ContactBook interface {
	agent.AddressBook
	Delete(ctx context.Context, owner, proof, key string) error
	Export(ctx context.Context, owner, proof string) (string, error)
	Import(ctx context.Context, owner, proof, blobID string) (int, error)
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// OwnerRequest identifies the address book being used. Signature is the
// wallet's ownership proof.
type OwnerRequest struct {
	UserAddress string `json:"user_address"`
	Signature   string `json:"signature"`
}

// SaveContactRequest is the body of POST /api/v1/contacts.
type SaveContactRequest struct {
	OwnerRequest
	Contact domain.ContactRecord `json:"contact"`
}

// SaveContactResponse returns where the ciphertext was stored.
type SaveContactResponse struct {
	BlobID string `json:"blob_id"`
}

// ListContactsResponse carries decrypted contacts back to their owner.
type ListContactsResponse struct {
	Contacts []domain.ContactRecord `json:"contacts"`
}

// ResolveContactRequest is the body of POST /api/v1/contacts/resolve.
type ResolveContactRequest struct {
	OwnerRequest
	Name string `json:"name"`
}

// ResolveContactResponse is the address behind a contact name.
type ResolveContactResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// DeleteContactRequest is the body of POST /api/v1/contacts/delete.
type DeleteContactRequest struct {
	OwnerRequest
	Key string `json:"key"`
}

// ExportContactsResponse names the blob holding the sealed book.
type ExportContactsResponse struct {
	BlobID string `json:"blob_id"`
}

// ImportContactsRequest is the body of POST /api/v1/contacts/import.
type ImportContactsRequest struct {
	OwnerRequest
	BlobID string `json:"blob_id"`
}

// ImportContactsResponse counts the restored contacts.
type ImportContactsResponse struct {
	Imported int `json:"imported"`
}

type handlers struct {
	agent Chatter
	book  ContactBook
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		AddError(r.Context(), err)
		writeError(w, domain.ErrInvalidRequest("request body must be valid JSON"))
		return false
	}
	return true
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: "sui-agent"})
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req agent.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, domain.ErrInvalidRequest("message is required").WithParam("message"))
		return
	}

	resp := h.agent.Chat(r.Context(), req)
	AddLogField(r.Context(), "action", resp.Intent.Action.String())
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) owner(w http.ResponseWriter, req OwnerRequest) bool {
	if !domain.IsAddress(req.UserAddress) {
		writeError(w, domain.ErrInvalidRequest("user_address must start with 0x").WithParam("user_address"))
		return false
	}
	return true
}

func (h *handlers) saveContact(w http.ResponseWriter, r *http.Request) {
	var req SaveContactRequest
	if !decode(w, r, &req) || !h.owner(w, req.OwnerRequest) {
		return
	}

	id, err := h.book.Save(r.Context(), req.UserAddress, req.Signature, req.Contact)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, err)
		return
	}
	AddLogField(r.Context(), "blob_id", id)
	writeJSON(w, http.StatusCreated, SaveContactResponse{BlobID: id})
}

func (h *handlers) listContacts(w http.ResponseWriter, r *http.Request) {
	var req OwnerRequest
	if !decode(w, r, &req) || !h.owner(w, req) {
		return
	}

	records, err := h.book.List(r.Context(), req.UserAddress, req.Signature)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListContactsResponse{Contacts: records})
}

func (h *handlers) resolveContact(w http.ResponseWriter, r *http.Request) {
	var req ResolveContactRequest
	if !decode(w, r, &req) || !h.owner(w, req.OwnerRequest) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, domain.ErrInvalidRequest("name is required").WithParam("name"))
		return
	}

	addr, err := h.book.Resolve(r.Context(), req.UserAddress, req.Signature, req.Name)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveContactResponse{Name: req.Name, Address: addr})
}

func (h *handlers) deleteContact(w http.ResponseWriter, r *http.Request) {
	var req DeleteContactRequest
	if !decode(w, r, &req) || !h.owner(w, req.OwnerRequest) {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, domain.ErrInvalidRequest("key is required").WithParam("key"))
		return
	}

	if err := h.book.Delete(r.Context(), req.UserAddress, req.Signature, req.Key); err != nil {
		AddError(r.Context(), err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) exportContacts(w http.ResponseWriter, r *http.Request) {
	var req OwnerRequest
	if !decode(w, r, &req) || !h.owner(w, req) {
		return
	}

	id, err := h.book.Export(r.Context(), req.UserAddress, req.Signature)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, err)
		return
	}
	AddLogField(r.Context(), "blob_id", id)
	writeJSON(w, http.StatusCreated, ExportContactsResponse{BlobID: id})
}

func (h *handlers) importContacts(w http.ResponseWriter, r *http.Request) {
	var req ImportContactsRequest
	if !decode(w, r, &req) || !h.owner(w, req.OwnerRequest) {
		return
	}
	if strings.TrimSpace(req.BlobID) == "" {
		writeError(w, domain.ErrInvalidRequest("blob_id is required").WithParam("blob_id"))
		return
	}

	n, err := h.book.Import(r.Context(), req.UserAddress, req.Signature, req.BlobID)
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportContactsResponse{Imported: n})
}
