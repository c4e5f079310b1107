package protocol

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrMalformed marks a line that arrived but could not be parsed. The
// dispatch loop answers with a failure response and keeps reading;
// every other decode error means the stream itself is gone.
var ErrMalformed = errors.New("malformed envelope")

// maxLineBytes bounds a single envelope. A 4096-byte audio chunk is
// ~5.5KB once base64-encoded, so this leaves generous headroom.
const maxLineBytes = 1 << 20

// Decoder reads newline-delimited JSON envelopes from a byte stream.
type Decoder struct {
	sc *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), maxLineBytes)
	return &Decoder{sc: sc}
}

func (d *Decoder) Decode() (Request, error) {
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			return Request{}, err
		}
		return Request{}, io.EOF
	}
	var req Request
	if err := json.Unmarshal(d.sc.Bytes(), &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.Type == "" {
		return Request{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return req, nil
}

// Encoder writes one JSON envelope per line. It is safe for concurrent
// use: responses from the dispatch loop and signals relayed from the
// partner's loop share a single connection.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(b)
	return err
}

// EncodeAudio packs a raw sample chunk for the payload "data" field.
func EncodeAudio(chunk []byte) string {
	return base64.StdEncoding.EncodeToString(chunk)
}

func DecodeAudio(data string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad audio payload", ErrMalformed)
	}
	return b, nil
}
