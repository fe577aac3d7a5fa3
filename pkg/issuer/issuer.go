// Package issuer issues and opens lock payloads on behalf of a key holder.
//
// An Issuer looks up the authorizing key for each operation, assembles the
// payload, records an audit event and, when a store is configured,
// persists the issued payload with its expiry.
package issuer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/log"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// DefaultTTL is how long issued payloads stay valid, per message type.
// Types without an entry never expire.
var DefaultTTL = map[wire.MessageType]time.Duration{
	wire.MessageTypeAccess: 5 * time.Minute,
	wire.MessageTypeSync:   time.Minute,
}

// Store persists issued payloads.
type Store interface {
	Create(ctx context.Context, rec *persistence.Record) error
}

// Compile-time interface satisfaction check.
var _ Store = (*persistence.Store)(nil)

// Config configures an Issuer.
type Config struct {
	// Keys supplies the authorizing key for each role. Required.
	Keys payload.KeySource

	// Store persists issued payloads. Optional.
	Store Store

	// Logger receives audit events. Optional.
	Logger log.Logger

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// TTL overrides DefaultTTL. A zero duration disables expiry for a type.
	TTL map[wire.MessageType]time.Duration
}

// Issuer issues and opens payloads.
type Issuer struct {
	keys   payload.KeySource
	store  Store
	logger log.Logger
	now    func() time.Time
	ttl    map[wire.MessageType]time.Duration
}

// New creates an Issuer from cfg.
func New(cfg Config) (*Issuer, error) {
	if cfg.Keys == nil {
		return nil, errors.New("key source is required")
	}

	i := &Issuer{
		keys:   cfg.Keys,
		store:  cfg.Store,
		logger: log.OrNoop(cfg.Logger),
		now:    cfg.Clock,
		ttl:    make(map[wire.MessageType]time.Duration),
	}
	if i.now == nil {
		i.now = time.Now
	}
	for t, d := range DefaultTTL {
		i.ttl[t] = d
	}
	for t, d := range cfg.TTL {
		i.ttl[t] = d
	}
	return i, nil
}

// Request is a payload request with issuing options.
type Request struct {
	payload.Request

	// ExpiresAt overrides the TTL-derived expiry.
	ExpiresAt *time.Time

	// Source names the caller in the audit trail.
	Source string
}

// Result is an issued payload.
type Result struct {
	IssueID   string
	Payload   *payload.Payload
	ExpiresAt *time.Time

	// Record is the stored record, nil without a store.
	Record *persistence.Record
}

// Issue assembles, audits and stores the payload described by req.
// A zero Time on time-bearing operations is replaced by the current time.
func (i *Issuer) Issue(ctx context.Context, req Request) (*Result, error) {
	id := uuid.New().String()
	now := i.now()
	op := req.Operation

	fail := func(err error) (*Result, error) {
		i.logger.Log(log.Event{
			Timestamp: now,
			IssueID:   id,
			Direction: log.DirectionIssued,
			Category:  log.CategoryError,
			Source:    req.Source,
			Error:     log.NewErrorEvent(&op, err),
		})
		return nil, err
	}

	pr := req.Request
	if pr.Time.IsZero() && usesTime(op) {
		pr.Time = now
	}

	signer, err := i.signer(op)
	if err != nil {
		return fail(err)
	}
	p, err := payload.Build(pr, signer)
	if err != nil {
		return fail(err)
	}

	res := &Result{IssueID: id, Payload: p, ExpiresAt: req.ExpiresAt}
	if res.ExpiresAt == nil {
		if ttl := i.ttl[p.MessageType()]; ttl > 0 {
			exp := now.Add(ttl)
			res.ExpiresAt = &exp
		}
	}

	if i.store != nil {
		rec := &persistence.Record{
			Payload:   hex.EncodeToString(p.Bytes()),
			Signature: hex.EncodeToString(p.Tag()),
			Operation: op.Name(),
			CreatedAt: now,
			ExpiresAt: res.ExpiresAt,
		}
		if err := i.store.Create(ctx, rec); err != nil {
			return fail(fmt.Errorf("%w: %w", persistence.ErrStorage, err))
		}
		res.Record = rec
	}

	ev := log.NewPayloadEvent(p, wire.Body{UserID: pr.UserID, Time: pr.Time})
	ev.ExpiresAt = res.ExpiresAt
	if res.Record != nil {
		ev.RecordID = &res.Record.ID
	}
	i.logger.Log(log.Event{
		Timestamp: now,
		IssueID:   id,
		Direction: log.DirectionIssued,
		Category:  log.CategoryPayload,
		Source:    req.Source,
		Payload:   ev,
	})
	return res, nil
}

// Open parses and verifies a scanned payload against the issuer's keys,
// recording the outcome.
func (i *Issuer) Open(ctx context.Context, raw []byte, source string) (*payload.Decoded, error) {
	id := uuid.New().String()
	event := log.Event{
		Timestamp: i.now(),
		IssueID:   id,
		Direction: log.DirectionOpened,
		Source:    source,
	}

	d, err := payload.Open(raw, i.keys)
	if err != nil {
		event.Category = log.CategoryError
		var op *wire.Operation
		if len(raw) > 0 {
			_, o := wire.DecodeHeader(raw[0])
			op = &o
		}
		event.Error = log.NewErrorEvent(op, err)
		i.logger.Log(event)
		return nil, err
	}

	event.Category = log.CategoryPayload
	event.Payload = log.NewPayloadEvent(d.Payload, d.Fields)
	i.logger.Log(event)
	return d, nil
}

func (i *Issuer) signer(op wire.Operation) (*payload.Signer, error) {
	role := payload.RequiredRole(op)
	if role == keys.RoleNone {
		return nil, nil
	}
	key, err := i.keys.Key(role)
	if err != nil {
		return nil, err
	}
	return &payload.Signer{Role: role, Key: key}, nil
}

func usesTime(op wire.Operation) bool {
	switch op {
	case wire.OpCheckIn, wire.OpCheckOut, wire.OpBiAccess, wire.OpNone, wire.OpDebugSync:
		return true
	default:
		return false
	}
}
