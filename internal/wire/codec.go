package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/lmdbkv/internal/kverr"
)

// Data is the application-visible payload of a record.
type Data = map[string]any

// Tag names a variant of the response union.
type Tag string

// Response variants. The tag is the single key of the outer JSON object.
const (
	TagOk                 Tag = "Ok"
	TagNotFound           Tag = "NotFound"
	TagBadRequest         Tag = "BadRequest"
	TagSerializationError Tag = "SerializationError"
)

// maxQuotedRaw bounds how much of an undecodable response is quoted back
// in error context.
const maxQuotedRaw = 256

// Envelope is the record shape exchanged with the engine. Data is kept as
// raw JSON so the bytes written are exactly the bytes validated.
type Envelope struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// Response is one decoded variant of the engine's response union.
type Response struct {
	Tag Tag

	// Payload is the JSON text carried by Ok.
	Payload string

	// Message is the text carried by BadRequest and SerializationError.
	Message string
}

// Err converts a non-Ok response into the matching error kind.
// Returns nil for Ok.
func (r Response) Err() error {
	switch r.Tag {
	case TagOk:
		return nil
	case TagNotFound:
		return kverr.New(kverr.NotFound, "key not found")
	case TagBadRequest:
		return kverr.New(kverr.Validation, r.Message)
	case TagSerializationError:
		return kverr.New(kverr.Serialization, r.Message)
	default:
		return kverr.Newf(kverr.Serialization, "unknown response variant %q", r.Tag)
	}
}

// MarshalData validates that data is representable as JSON and returns its
// encoding. A nil map encodes as an empty object. Records read back with
// numbers as float64, so integers a float64 cannot hold exactly are
// rejected.
func MarshalData(data Data) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	b, err := marshalNoEscape(data)
	if err != nil {
		return nil, kverr.Wrap(kverr.Validation, err, "data is not representable as JSON")
	}
	if err := checkNumbers(b); err != nil {
		return nil, err
	}
	return b, nil
}

// checkNumbers rejects integer literals in b that change when decoded as
// float64.
func checkNumbers(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return kverr.Wrap(kverr.Validation, err, "data is not representable as JSON")
		}
		if n, ok := tok.(json.Number); ok && !exactInFloat64(n.String()) {
			return kverr.Newf(kverr.Validation, "number %s cannot be stored without losing precision", n)
		}
	}
}

// exactInFloat64 reports whether lit survives a float64 round trip. Only
// integer literals can fail: encoding/json writes floats in shortest form.
func exactInFloat64(lit string) bool {
	if strings.ContainsAny(lit, ".eE") {
		return true
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return false
	}
	return strconv.FormatFloat(f, 'f', -1, 64) == lit
}

// EncodeEnvelope builds the outbound write envelope for already-marshaled data.
func EncodeEnvelope(id string, data []byte) ([]byte, error) {
	canonical, err := MarshalCanonical(json.RawMessage(data))
	if err != nil {
		return nil, kverr.Wrap(kverr.Validation, err, "data is not representable as canonical JSON")
	}
	env := Envelope{
		ID:          id,
		Fingerprint: fingerprintCanonical(id, canonical),
		Data:        data,
	}
	b, err := marshalNoEscape(env)
	if err != nil {
		return nil, kverr.Wrap(kverr.Serialization, err, "encode envelope")
	}
	return b, nil
}

// EncodeWrite serializes a record into the envelope sent on create and replace.
func EncodeWrite(id string, data Data) ([]byte, error) {
	raw, err := MarshalData(data)
	if err != nil {
		return nil, err
	}
	return EncodeEnvelope(id, raw)
}

// ParseEnvelope decodes envelope JSON text.
func ParseEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, serializationError(b, err, "envelope is not valid JSON")
	}
	return env, nil
}

// ParseResponse decodes the outer response union. The outer text must be a
// JSON object with exactly one recognized tag.
func ParseResponse(raw []byte) (Response, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return Response{}, serializationError(raw, err, "response is not a JSON object")
	}
	if len(outer) != 1 {
		return Response{}, serializationError(raw, nil, "response must carry exactly one variant tag")
	}

	for key, value := range outer {
		tag := Tag(key)
		switch tag {
		case TagOk:
			var payload string
			if err := json.Unmarshal(value, &payload); err != nil {
				return Response{}, serializationError(raw, err, "Ok payload is not a JSON string")
			}
			return Response{Tag: tag, Payload: payload}, nil
		case TagNotFound:
			return Response{Tag: tag}, nil
		case TagBadRequest, TagSerializationError:
			return Response{Tag: tag, Message: variantMessage(value)}, nil
		default:
			return Response{}, serializationError(raw, nil, fmt.Sprintf("unrecognized response variant %q", key))
		}
	}
	// unreachable: len(outer) == 1
	return Response{}, serializationError(raw, nil, "empty response")
}

// Decode decodes a single-record response and returns the envelope's data.
func Decode(raw []byte) (Data, error) {
	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	env, err := ParseEnvelope([]byte(resp.Payload))
	if err != nil {
		return nil, err
	}
	return decodeData(env, raw)
}

// DecodeStatus decodes a delete or clear response. The Ok payload may be a
// JSON boolean or any other JSON value, which counts as success.
func DecodeStatus(raw []byte) (bool, error) {
	resp, err := ParseResponse(raw)
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	if resp.Payload == "" {
		return true, nil
	}
	var v any
	if err := json.Unmarshal([]byte(resp.Payload), &v); err != nil {
		return false, serializationError(raw, err, "Ok payload is not valid JSON")
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return true, nil
}

// DecodeList decodes a full enumeration: a JSON array of envelopes, projected
// to a map from id to data. An error variant of the response union is
// surfaced as its error; an Ok variant carries the array as its payload.
func DecodeList(raw []byte) (map[string]Data, error) {
	list, err := unwrapArray(raw)
	if err != nil {
		return nil, err
	}
	var envs []Envelope
	if err := json.Unmarshal(list, &envs); err != nil {
		return nil, serializationError(raw, err, "enumeration is not an array of envelopes")
	}
	out := make(map[string]Data, len(envs))
	for _, env := range envs {
		if env.ID == "" {
			return nil, serializationError(raw, nil, "enumerated envelope has no id")
		}
		data, err := decodeData(env, raw)
		if err != nil {
			return nil, err
		}
		out[env.ID] = data
	}
	return out, nil
}

// DecodeKeys decodes a key enumeration: a JSON array of strings.
func DecodeKeys(raw []byte) ([]string, error) {
	list, err := unwrapArray(raw)
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal(list, &keys); err != nil {
		return nil, serializationError(raw, err, "key enumeration is not an array of strings")
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// DecodeStats decodes a stats response whose Ok payload is a JSON object.
func DecodeStats(raw []byte) (Data, error) {
	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var stats Data
	if err := json.Unmarshal([]byte(resp.Payload), &stats); err != nil || stats == nil {
		return nil, serializationError(raw, err, "stats payload is not a JSON object")
	}
	return stats, nil
}

// OkResponse encodes an Ok variant carrying payload as JSON text.
func OkResponse(payload []byte) []byte {
	return mustVariant(TagOk, string(payload))
}

// NotFoundResponse encodes the NotFound variant.
func NotFoundResponse() []byte {
	return []byte(`{"NotFound":null}`)
}

// BadRequestResponse encodes a BadRequest variant.
func BadRequestResponse(message string) []byte {
	return mustVariant(TagBadRequest, message)
}

// SerializationErrorResponse encodes a SerializationError variant.
func SerializationErrorResponse(message string) []byte {
	return mustVariant(TagSerializationError, message)
}

func mustVariant(tag Tag, value string) []byte {
	b, err := marshalNoEscape(map[Tag]string{tag: value})
	if err != nil {
		// a map of strings always marshals
		panic(err)
	}
	return b
}

func unwrapArray(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, serializationError(raw, nil, "empty enumeration response")
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}
	resp, err := ParseResponse(trimmed)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return []byte(resp.Payload), nil
}

func decodeData(env Envelope, raw []byte) (Data, error) {
	trimmed := bytes.TrimSpace(env.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, serializationError(raw, nil, "envelope has no data")
	}
	var data Data
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return nil, serializationError(raw, err, "envelope data is not a JSON object")
	}
	return data, nil
}

func variantMessage(value json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(value, &msg); err == nil {
		return msg
	}
	return string(value)
}

func serializationError(raw []byte, cause error, message string) error {
	quoted := string(raw)
	if len(quoted) > maxQuotedRaw {
		quoted = quoted[:maxQuotedRaw] + "..."
	}
	return &kverr.Error{
		Kind:    kverr.Serialization,
		Message: message,
		Context: quoted,
		Cause:   cause,
	}
}

// marshalNoEscape encodes v without HTML escaping and without the trailing
// newline json.Encoder appends.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
