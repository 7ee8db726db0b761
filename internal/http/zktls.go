package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"NovaRamp/internal/auth"
	"NovaRamp/internal/zktls"

	"github.com/go-chi/chi/v5"
)

const maxMetadataWait = 10 * time.Second

// extension returns the simulated extension bound to the caller.
func (h *Handler) extension(w http.ResponseWriter, r *http.Request) (zktls.Extension, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return h.Extensions.For(id.Subject), true
}

func (h *Handler) ExtensionStatus(w http.ResponseWriter, r *http.Request) {
	ext, ok := h.extension(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ext.Status())
}

func (h *Handler) ExtensionConnect(w http.ResponseWriter, r *http.Request) {
	ext, ok := h.extension(w, r)
	if !ok {
		return
	}
	conn, err := ext.Connect(r.Context())
	if err != nil {
		h.respondError(w, r, "zktls connect failed", err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

func (h *Handler) ExtensionAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req zktls.AuthenticateRequest
	if !decode(w, r, &req) {
		return
	}
	ext, ok := h.extension(w, r)
	if !ok {
		return
	}
	res, err := ext.Authenticate(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "zktls authenticate failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ExtensionMetadata(w http.ResponseWriter, r *http.Request) {
	ext, ok := h.extension(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionId")
	var (
		msg zktls.MetadataMessage
		err error
	)
	if wait, ok := metadataWait(r); ok {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()
		msg, err = zktls.WaitMetadata(ctx, ext, sessionID)
	} else {
		msg, err = ext.Metadata(r.Context(), sessionID)
	}
	if err != nil {
		h.respondError(w, r, "zktls metadata failed", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// metadataWait reads ?waitMs=, capped at maxMetadataWait.
func metadataWait(r *http.Request) (time.Duration, bool) {
	ms, err := strconv.Atoi(r.URL.Query().Get("waitMs"))
	if err != nil || ms <= 0 {
		return 0, false
	}
	return min(time.Duration(ms)*time.Millisecond, maxMetadataWait), true
}

func (h *Handler) GenerateProof(w http.ResponseWriter, r *http.Request) {
	var req zktls.ProofRequest
	if !decode(w, r, &req) {
		return
	}
	ext, ok := h.extension(w, r)
	if !ok {
		return
	}
	res, err := ext.GenerateProof(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "zktls proof failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) FetchProof(w http.ResponseWriter, r *http.Request) {
	ext, ok := h.extension(w, r)
	if !ok {
		return
	}
	proof, err := ext.FetchProof(r.Context(), chi.URLParam(r, "proofId"))
	if err != nil {
		h.respondError(w, r, "zktls fetch proof failed", err)
		return
	}
	writeJSON(w, http.StatusOK, proof)
}
