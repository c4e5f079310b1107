package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStream(t *testing.T) {
	input := `{"type":"LOGIN","payload":{"username":"alice","password":"pw"}}` + "\n" +
		`not json at all` + "\n" +
		`{"payload":{"action":"accept"}}` + "\n" +
		`{"type":"CALL","payload":{"action":"initiate","caller":"alice","callee":"bob"}}` + "\n"
	d := NewDecoder(strings.NewReader(input))

	req, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, TypeLogin, req.Type)
	assert.Equal(t, "alice", req.Payload[FieldUsername])

	_, err = d.Decode()
	assert.ErrorIs(t, err, ErrMalformed)

	// valid json but no type is still malformed
	_, err = d.Decode()
	assert.ErrorIs(t, err, ErrMalformed)

	req, err = d.Decode()
	require.NoError(t, err)
	assert.Equal(t, ActionInitiate, req.Action())
	assert.Equal(t, "bob", req.Payload[FieldCallee])

	_, err = d.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEncodeWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.Encode(Fail("nope")))
	require.NoError(t, e.Encode(OK("yes", []string{"a"})))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"success":false`)
	assert.Contains(t, lines[1], `"success":true`)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	want := CallSignal(ActionAudioData, "alice", "bob")
	want.Payload[FieldData] = EncodeAudio([]byte{0x00, 0x01, 0xfe, 0xff})
	require.NoError(t, e.Encode(want))

	got, err := NewDecoder(&buf).Decode()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	chunk, err := DecodeAudio(got.Payload[FieldData])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xfe, 0xff}, chunk)
}

func TestDecodeAudioRejectsGarbage(t *testing.T) {
	_, err := DecodeAudio("!!! not base64 !!!")
	assert.ErrorIs(t, err, ErrMalformed)
}
