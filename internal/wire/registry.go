// Package wire is the serialization registry bridging a message's local
// Identity to a stable wire name and a pair of JSON encode/decode
// functions, so the remote transport never needs to know about concrete
// payload types (spec §4.5).
package wire

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/errors"
)

// Encoder turns a payload into a JSON document ready to embed in an
// envelope's "message" field.
type Encoder func(payload interface{}) (json.RawMessage, error)

// Decoder turns an envelope's "message" field back into a payload.
type Decoder func(doc json.RawMessage) (interface{}, error)

type registration struct {
	identity actorcore.Identity
	wireName string
	encode   Encoder
	decode   Decoder
}

// Registry maps message identities to wire names and codecs. It is safe
// for concurrent use; registrations made after process start still take
// effect immediately for the next encode/decode call.
type Registry struct {
	mu        sync.RWMutex
	byID   map[actorcore.Identity]*registration
	byName map[string]*registration
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[actorcore.Identity]*registration),
		byName: make(map[string]*registration),
	}
}

// Register associates identity with wireName and a pair of codecs. It is
// idempotent: registering the same identity again overwrites the previous
// registration rather than erroring.
func (r *Registry) Register(identity actorcore.Identity, wireName string, encode Encoder, decode Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byID[identity]; ok {
		delete(r.byName, old.wireName)
	}
	reg := &registration{identity: identity, wireName: wireName, encode: encode, decode: decode}
	r.byID[identity] = reg
	r.byName[wireName] = reg
}

// WireNameOf returns the wire name registered for identity, if any.
func (r *Registry) WireNameOf(identity actorcore.Identity) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byID[identity]
	if !ok {
		return "", false
	}
	return reg.wireName, true
}

// IsRegistered reports whether wireName has a decoder registered.
func (r *Registry) IsRegistered(wireName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[wireName]
	return ok
}

// Encode resolves identity's wire name and encodes payload. Encoding an
// unregistered identity is a contract error: the caller is expected to
// report and drop rather than propagate it as a normal error (spec §4.5).
func (r *Registry) Encode(identity actorcore.Identity, payload interface{}) (wireName string, doc json.RawMessage, err error) {
	r.mu.RLock()
	reg, ok := r.byID[identity]
	r.mu.RUnlock()
	if !ok {
		return "", nil, errors.NewStandardError(errors.CategoryContract, "UNENCODABLE_IDENTITY",
			fmt.Sprintf("identity %d has no registered wire encoding", identity),
			map[string]interface{}{"identity": identity})
	}
	doc, err = reg.encode(payload)
	if err != nil {
		return "", nil, err
	}
	return reg.wireName, doc, nil
}

// Decode resolves wireName's identity and decoder and decodes doc. A
// decode failure, or an unregistered wireName, is reported by returning
// ok=false; the caller is expected to synthesize a Reject rather than
// propagate a Go error across the remote boundary (spec §4.7).
func (r *Registry) Decode(wireName string, doc json.RawMessage) (identity actorcore.Identity, payload interface{}, ok bool) {
	r.mu.RLock()
	reg, found := r.byName[wireName]
	r.mu.RUnlock()
	if !found {
		return 0, nil, false
	}
	payload, err := reg.decode(doc)
	if err != nil {
		return 0, nil, false
	}
	return reg.identity, payload, true
}

// JSONEncoder builds an Encoder for any Go type that marshals cleanly via
// encoding/json.
func JSONEncoder() Encoder {
	return func(payload interface{}) (json.RawMessage, error) {
		return json.Marshal(payload)
	}
}

// JSONDecoder builds a Decoder that unmarshals into a fresh T and returns it
// by value (a T, not a *T).
func JSONDecoder[T any]() Decoder {
	return func(doc json.RawMessage) (interface{}, error) {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
