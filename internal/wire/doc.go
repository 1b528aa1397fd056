// Package wire implements the JSON exchange format spoken with the engine.
//
// Outbound, every write is an envelope:
//
//	{"id":"user:1","fingerprint":"<32 hex>","data":{...}}
//
// Inbound, every single-record call answers with a tagged union whose one key
// names the variant:
//
//	{"Ok":"<envelope JSON as a string>"}
//	{"NotFound":null}
//	{"BadRequest":"message"}
//	{"SerializationError":"message"}
//
// The Ok payload is itself JSON text, so decoding a record takes two parses.
// Enumerations answer with bare JSON arrays. Anything that does not match
// these shapes decodes to a SERIALIZATION error quoting the raw text; no
// shape is ever treated as an implicit success.
package wire
