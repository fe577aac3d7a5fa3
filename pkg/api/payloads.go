package api

import (
	"net/http"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/issuer"
	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// IssueRequest is the body of POST /payloads. Fields that do not apply to
// the operation are ignored.
type IssueRequest struct {
	Operation  string     `json:"operation"`
	UserID     uint32     `json:"user_id,omitempty"`
	Time       *time.Time `json:"time,omitempty"`
	NewKey     string     `json:"new_key,omitempty"`
	BlinkCount uint32     `json:"blink_count,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// IssueResponse is the body of a successful POST /payloads.
type IssueResponse struct {
	IssueID   string              `json:"issue_id"`
	Operation string              `json:"operation"`
	Payload   string              `json:"payload"`
	Signed    bool                `json:"signed"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
	Record    *persistence.Record `json:"record,omitempty"`
}

// VerifyRequest is the body of POST /verify.
type VerifyRequest struct {
	Payload string `json:"payload"`
}

// VerifyResponse describes an authenticated payload.
type VerifyResponse struct {
	Valid       bool       `json:"valid"`
	MessageType string     `json:"message_type"`
	Operation   string     `json:"operation"`
	Role        string     `json:"role"`
	Signed      bool       `json:"signed"`
	UserID      *uint32    `json:"user_id,omitempty"`
	Time        *time.Time `json:"time,omitempty"`
	BlinkCount  *uint32    `json:"blink_count,omitempty"`
	Rotates     string     `json:"rotates,omitempty"`
}

// handleIssue assembles a lock payload through the issuer.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	if s.issuer == nil {
		writeError(w, http.StatusServiceUnavailable, "issuer not configured")
		return
	}

	var body IssueRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, err := wire.ParseOperation(body.Operation)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := issuer.Request{
		Request: payload.Request{
			Operation:  op,
			UserID:     body.UserID,
			BlinkCount: body.BlinkCount,
		},
		ExpiresAt: body.ExpiresAt,
		Source:    s.clientIP(r),
	}
	if body.Time != nil {
		req.Time = *body.Time
	}
	if body.NewKey != "" {
		k, err := keys.FromHex(body.NewKey)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.NewKey = &k
	}

	res, err := s.issuer.Issue(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, IssueResponse{
		IssueID:   res.IssueID,
		Operation: op.Name(),
		Payload:   compactHex(res.Payload.Bytes()),
		Signed:    res.Payload.Signed(),
		ExpiresAt: res.ExpiresAt,
		Record:    res.Record,
	})
}

// handleVerify parses and authenticates a scanned payload.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.issuer == nil {
		writeError(w, http.StatusServiceUnavailable, "issuer not configured")
		return
	}

	var body VerifyRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	raw, err := field.ParseHex(body.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.issuer.Open(r.Context(), raw, s.clientIP(r))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, describe(d))
}

func describe(d *payload.Decoded) VerifyResponse {
	resp := VerifyResponse{
		Valid:       true,
		MessageType: d.MessageType().String(),
		Operation:   d.Operation().Name(),
		Role:        payload.RequiredRole(d.Operation()).String(),
		Signed:      d.Signed(),
	}

	switch d.MessageType() {
	case wire.MessageTypeAccess:
		uid := d.Fields.UserID
		resp.UserID = &uid
		t := d.Fields.Time
		resp.Time = &t
	case wire.MessageTypeSync:
		t := d.Fields.Time
		resp.Time = &t
	case wire.MessageTypeConfig:
		if role, ok := payload.RotatedRole(d.Operation()); ok {
			resp.Rotates = role.String()
		}
	case wire.MessageTypeDebug:
		if n, ok := d.BlinkCount(); ok {
			resp.BlinkCount = &n
		}
		if ts, ok := d.Fields.Data.(wire.Timestamp); ok {
			t := time.Time(ts)
			resp.Time = &t
		}
	}
	return resp
}
