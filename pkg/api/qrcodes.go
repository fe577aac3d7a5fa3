package api

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
	"github.com/henriqueedu2001/causp-lock-server/pkg/qrcode"
)

// CreateQRCodeRequest is the body of POST /qrcodes.
type CreateQRCodeRequest struct {
	Payload   string     `json:"payload"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ListQRCodesResponse is the body of GET /qrcodes.
type ListQRCodesResponse struct {
	Records []persistence.Record `json:"records"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// handleCreateQRCode signs the posted payload text with the API secret and
// stores it.
func (s *Server) handleCreateQRCode(w http.ResponseWriter, r *http.Request) {
	var req CreateQRCodeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	tag := mac.SignWithSecret([]byte(req.Payload), s.secret)
	rec := &persistence.Record{
		Payload:   req.Payload,
		Signature: tag.Hex(),
		CreatedAt: s.now(),
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.store.Create(r.Context(), rec); err != nil {
		s.logger.WithError(err).Error("store qr code")
		writeError(w, http.StatusInternalServerError, "failed to store qr code")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// handleListQRCodes handles GET /qrcodes?limit=&offset=.
func (s *Server) handleListQRCodes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", persistence.DefaultListLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	records, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("list qr codes")
		writeError(w, http.StatusInternalServerError, "failed to list qr codes")
		return
	}
	if records == nil {
		records = []persistence.Record{}
	}

	writeJSON(w, http.StatusOK, ListQRCodesResponse{Records: records, Limit: limit, Offset: offset})
}

// handleGetQRCode handles GET /qrcodes/{id}.
func (s *Server) handleGetQRCode(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleQRCodePNG renders a stored lock payload. Records holding free text
// rather than wire bytes cannot be rendered.
func (s *Server) handleQRCodePNG(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}

	raw, err := field.ParseHex(rec.Payload)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "record does not hold a lock payload")
		return
	}
	d, err := payload.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "record does not hold a lock payload")
		return
	}

	opts := qrcode.Options{}
	if scale, err := queryInt(r, "scale", 0); err == nil && scale > 0 && scale <= 50 {
		opts.Scale = scale
	}
	code, err := qrcode.New(d.Payload, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render qr code")
		return
	}
	png, err := code.PNG()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render qr code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// lookup fetches the record named by the {id} route variable, writing the
// error response itself when it cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*persistence.Record, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("get qr code")
		writeError(w, http.StatusInternalServerError, "failed to get qr code")
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "qr code not found")
		return nil, false
	}
	return rec, true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// compactHex is the stored form of wire bytes.
func compactHex(b []byte) string {
	return hex.EncodeToString(b)
}
