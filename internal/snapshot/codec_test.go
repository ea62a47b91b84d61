package snapshot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec(t *testing.T) {
	for _, name := range []string{CodecJSON, CodecMsgpack, CodecMsgpackLZ4} {
		c, err := NewCodec(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	c, err := NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecJSON, c.Name(), "empty name falls back to json")

	_, err = NewCodec("protobuf")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestCodec_Binary(t *testing.T) {
	tests := []struct {
		name   string
		binary bool
	}{
		{CodecJSON, false},
		{CodecMsgpack, true},
		{CodecMsgpackLZ4, true},
	}
	for _, tt := range tests {
		c, err := NewCodec(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.binary, c.Binary(), tt.name)
	}
}

func TestCodec_Messages(t *testing.T) {
	snap := Build(newTestWorld(t), 12, 5)

	for _, name := range []string{CodecJSON, CodecMsgpack, CodecMsgpackLZ4} {
		t.Run(name, func(t *testing.T) {
			c, err := NewCodec(name)
			require.NoError(t, err)

			data, err := c.EncodeID(42)
			require.NoError(t, err)
			msg, err := c.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, TypeID, msg.Type)
			assert.Equal(t, uint64(42), msg.ID)
			assert.Nil(t, msg.Snapshot)

			data, err = c.EncodeSnapshot(snap)
			require.NoError(t, err)
			msg, err = c.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, TypeSnapshot, msg.Type)
			assert.Equal(t, snap, msg.Snapshot)
		})
	}
}

func TestCodec_EmptyPayload(t *testing.T) {
	for _, name := range []string{CodecJSON, CodecMsgpack, CodecMsgpackLZ4} {
		c, err := NewCodec(name)
		require.NoError(t, err)
		_, err = c.Decode(nil)
		assert.ErrorIs(t, err, ErrEmptyPayload, name)
	}
}

func TestJSONCodec_WireShape(t *testing.T) {
	c, err := NewCodec(CodecJSON)
	require.NoError(t, err)

	data, err := c.EncodeSnapshot(Build(newTestWorld(t), 3, 5))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"snapshot"`, string(raw["t"]))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["p"], &body))
	assert.JSONEq(t, `[{"id":2,"x":40.123,"y":60.988,"a":3.1416,"acc":true}]`, string(body["ships"]))
	assert.JSONEq(t, `[{"id":4,"x":150,"y":150,"r":0.33333}]`, string(body["asteroids"]))
}

func TestJSONCodec_UnknownType(t *testing.T) {
	c, err := NewCodec(CodecJSON)
	require.NoError(t, err)

	_, err = c.Decode([]byte(`{"t":"chat","p":"hi"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = c.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestLZ4Codec_CorruptFrame(t *testing.T) {
	c, err := NewCodec(CodecMsgpackLZ4)
	require.NoError(t, err)

	_, err = c.Decode([]byte{0x01, 0x02, 0x03, 0x04})
	assert.Error(t, err)
}

func TestIntent(t *testing.T) {
	data, err := EncodeDir(-0.5)
	require.NoError(t, err)
	in, err := DecodeIntent(data)
	require.NoError(t, err)
	assert.Equal(t, Intent{Type: TypeDir, Turn: -0.5}, in)

	for _, typ := range []string{TypeAcc, TypeShoot} {
		data, err := EncodeFlag(typ, true)
		require.NoError(t, err)
		in, err := DecodeIntent(data)
		require.NoError(t, err)
		assert.Equal(t, Intent{Type: typ, On: true}, in)
	}

	_, err = EncodeFlag(TypeDir, true)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestDecodeIntent_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		is   error
	}{
		{name: "empty", data: "", is: ErrEmptyPayload},
		{name: "unknown type", data: `{"t":"warp","p":1}`, is: ErrUnknownMessage},
		{name: "wrong payload", data: `{"t":"acc","p":"yes"}`},
		{name: "missing payload", data: `{"t":"dir"}`},
		{name: "garbage", data: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIntent([]byte(tt.data))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func BenchmarkCodec_EncodeSnapshot(b *testing.B) {
	snap := Build(newTestWorld(b), 1, 5)
	for _, name := range []string{CodecJSON, CodecMsgpack, CodecMsgpackLZ4} {
		c, err := NewCodec(name)
		require.NoError(b, err)
		b.Run(name, func(b *testing.B) {
			for b.Loop() {
				if _, err := c.EncodeSnapshot(snap); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
