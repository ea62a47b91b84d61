package snapshot

import (
	"encoding/json"
	"fmt"
)

// Message types of the {t, p} envelope.
const (
	TypeID       = "id"
	TypeSnapshot = "snapshot"

	TypeDir   = "dir"
	TypeAcc   = "acc"
	TypeShoot = "shoot"
)

// Intent is a decoded client-to-server message.
// Turn is set for TypeDir, On for TypeAcc and TypeShoot.
type Intent struct {
	Type string
	Turn float64
	On   bool
}

// EncodeDir builds a turn intent.
func EncodeDir(turn float64) ([]byte, error) {
	return json.Marshal(envelope{Type: TypeDir, Payload: turn})
}

// EncodeFlag builds an acc or shoot intent.
func EncodeFlag(typ string, on bool) ([]byte, error) {
	if typ != TypeAcc && typ != TypeShoot {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, typ)
	}
	return json.Marshal(envelope{Type: typ, Payload: on})
}

// DecodeIntent parses an inbound JSON intent. Clients always speak JSON.
func DecodeIntent(data []byte) (Intent, error) {
	if len(data) == 0 {
		return Intent{}, ErrEmptyPayload
	}
	var raw struct {
		Type    string          `json:"t"`
		Payload json.RawMessage `json:"p"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Intent{}, fmt.Errorf("decoding intent: %w", err)
	}

	in := Intent{Type: raw.Type}
	var err error
	switch raw.Type {
	case TypeDir:
		err = json.Unmarshal(raw.Payload, &in.Turn)
	case TypeAcc, TypeShoot:
		err = json.Unmarshal(raw.Payload, &in.On)
	default:
		return Intent{}, fmt.Errorf("%w: %q", ErrUnknownMessage, raw.Type)
	}
	if err != nil {
		return Intent{}, fmt.Errorf("decoding %s payload: %w", raw.Type, err)
	}
	return in, nil
}
