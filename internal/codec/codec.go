// Package codec converts negotiation payloads to and from the paste-safe
// blob format exchanged between peers out-of-band.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/elchatico/dualview/internal/domain"
)

// ErrFormat is returned when an input decodes by neither path. The
// underlying base64/gzip/JSON error is deliberately not exposed; callers
// only need to know the paste was not a payload.
var ErrFormat = errors.New("unrecognized payload format")

// Encode serializes the payload to canonical JSON, gzips it and wraps the
// result in standard base64.
func Encode(p domain.NegotiationPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode auto-detects the input format. Plain JSON is tried first so that
// uncompressed payloads keep working; only when that parse fails does it
// fall back to base64 → gunzip → JSON. The order must not be flipped: an
// uncompressed payload is not valid decompressor input, while a compressed
// blob never parses as JSON, so the two formats stay disjoint.
func Decode(in string) (domain.NegotiationPayload, error) {
	in = strings.TrimSpace(in)

	var p domain.NegotiationPayload
	if err := json.Unmarshal([]byte(in), &p); err == nil && p.Valid() {
		return p, nil
	}

	packed, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		return domain.NegotiationPayload{}, ErrFormat
	}
	zr, err := gzip.NewReader(bytes.NewReader(packed))
	if err != nil {
		return domain.NegotiationPayload{}, ErrFormat
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return domain.NegotiationPayload{}, ErrFormat
	}
	p = domain.NegotiationPayload{}
	if err := json.Unmarshal(raw, &p); err != nil || !p.Valid() {
		return domain.NegotiationPayload{}, ErrFormat
	}
	return p, nil
}
