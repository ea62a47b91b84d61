package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names accepted by NewCodec and the server config.
const (
	CodecJSON       = "json"
	CodecMsgpack    = "msgpack"
	CodecMsgpackLZ4 = "msgpack+lz4"
)

var (
	ErrUnknownCodec   = errors.New("unknown codec")
	ErrEmptyPayload   = errors.New("empty payload")
	ErrUnknownMessage = errors.New("unknown message type")
)

// Message is a decoded server-to-client message.
// ID is set for TypeID, Snapshot for TypeSnapshot.
type Message struct {
	Type     string
	ID       uint64
	Snapshot *Snapshot
}

// Codec encodes outbound server messages.
// Binary codecs are sent as WebSocket binary frames, the rest as text frames.
type Codec interface {
	Name() string
	Binary() bool
	EncodeID(id uint64) ([]byte, error)
	EncodeSnapshot(s *Snapshot) ([]byte, error)
	Decode(data []byte) (Message, error)
}

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case CodecJSON, "":
		return jsonCodec{}, nil
	case CodecMsgpack:
		return msgpackCodec{}, nil
	case CodecMsgpackLZ4:
		return lz4Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// envelope is the outer {t, p} frame shared by all codecs.
type envelope struct {
	Type    string `json:"t" msgpack:"t"`
	Payload any    `json:"p" msgpack:"p"`
}

func decodePayload(typ string, unmarshal func(v any) error) (Message, error) {
	msg := Message{Type: typ}
	switch typ {
	case TypeID:
		if err := unmarshal(&msg.ID); err != nil {
			return Message{}, fmt.Errorf("decoding id: %w", err)
		}
	case TypeSnapshot:
		msg.Snapshot = &Snapshot{}
		if err := unmarshal(msg.Snapshot); err != nil {
			return Message{}, fmt.Errorf("decoding snapshot: %w", err)
		}
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessage, typ)
	}
	return msg, nil
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) EncodeID(id uint64) ([]byte, error) {
	return json.Marshal(envelope{Type: TypeID, Payload: id})
}

func (jsonCodec) EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(envelope{Type: TypeSnapshot, Payload: s})
}

func (jsonCodec) Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, ErrEmptyPayload
	}
	var raw struct {
		Type    string          `json:"t"`
		Payload json.RawMessage `json:"p"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return decodePayload(raw.Type, func(v any) error { return json.Unmarshal(raw.Payload, v) })
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return CodecMsgpack }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) EncodeID(id uint64) ([]byte, error) {
	return msgpack.Marshal(&envelope{Type: TypeID, Payload: id})
}

func (msgpackCodec) EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return msgpack.Marshal(&envelope{Type: TypeSnapshot, Payload: s})
}

func (msgpackCodec) Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, ErrEmptyPayload
	}
	var raw struct {
		Type    string             `msgpack:"t"`
		Payload msgpack.RawMessage `msgpack:"p"`
	}
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return decodePayload(raw.Type, func(v any) error { return msgpack.Unmarshal(raw.Payload, v) })
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// lz4Codec is msgpackCodec wrapped in an LZ4 frame.
type lz4Codec struct {
	inner msgpackCodec
}

func (lz4Codec) Name() string { return CodecMsgpackLZ4 }
func (lz4Codec) Binary() bool { return true }

func (c lz4Codec) EncodeID(id uint64) ([]byte, error) {
	data, err := c.inner.EncodeID(id)
	if err != nil {
		return nil, err
	}
	return compressLZ4(data)
}

func (c lz4Codec) EncodeSnapshot(s *Snapshot) ([]byte, error) {
	data, err := c.inner.EncodeSnapshot(s)
	if err != nil {
		return nil, err
	}
	return compressLZ4(data)
}

func (c lz4Codec) Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, ErrEmptyPayload
	}
	plain, err := decompressLZ4(data)
	if err != nil {
		return Message{}, err
	}
	return c.inner.Decode(plain)
}

func compressLZ4(src []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompressLZ4(src []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	zr := lz4.NewReader(bytes.NewReader(src))
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, fmt.Errorf("lz4 read: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
