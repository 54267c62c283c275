package wallet

import (
	"bytes"
	"encoding/json"
	"time"
)

// Token is an opaque bearer credential with an optional expiry.
// A zero Expiry means the wallet did not report one.
type Token struct {
	Value  string
	Expiry time.Time
}

// Valid reports whether the token has a value and, if an expiry is known,
// has not passed it.
func (t Token) Valid() bool {
	if t.Value == "" {
		return false
	}

	return t.Expiry.IsZero() || time.Now().Before(t.Expiry)
}

// shape identifies which of the wallet's known response encodings matched.
// The wallet's response format is not stable across provider versions, so
// decoding pattern-matches each shape in priority order instead of
// trusting a single schema.
type shape int

const (
	shapeJSONString shape = iota
	shapeBareArray
	shapeDataObject
	shapeUnknown
)

// shapeNames for logging.
var shapeNames = map[shape]string{
	shapeJSONString: "json_string",
	shapeBareArray:  "bare_array",
	shapeDataObject: "data_object",
	shapeUnknown:    "unknown",
}

func (s shape) String() string {
	return shapeNames[s]
}

// tokenEntry mirrors one element of the wallet's token array.
type tokenEntry struct {
	Token     string   `json:"token"`
	Provider  string   `json:"provider"`
	ExpiresAt int64    `json:"expires_at"`
	Scopes    []string `json:"scopes"`
}

// toToken converts a wallet entry to a Token. ExpiresAt is Unix seconds;
// zero means no expiry reported.
func (e tokenEntry) toToken() Token {
	tok := Token{Value: e.Token}
	if e.ExpiresAt > 0 {
		tok.Expiry = time.Unix(e.ExpiresAt, 0)
	}

	return tok
}

// dataEnvelope matches the {"data": [...]} response variant.
type dataEnvelope struct {
	Data []tokenEntry `json:"data"`
}

// decodeEntries pattern-matches the response body against the known
// shapes in priority order: a JSON-encoded string containing the real
// payload, a bare array, then a {"data": [...]} object. Anything else is
// shapeUnknown with nil entries — never an error, so callers can treat an
// unrecognized shape as "no token" instead of a failure.
func decodeEntries(body []byte) ([]tokenEntry, shape) {
	body = bytes.TrimSpace(body)

	// Double-encoded payload: the body is a JSON string whose content is
	// itself the array or envelope.
	var inner string
	if err := json.Unmarshal(body, &inner); err == nil {
		entries, innerShape := decodeEntries([]byte(inner))
		if innerShape != shapeUnknown {
			return entries, shapeJSONString
		}

		return nil, shapeUnknown
	}

	var entries []tokenEntry
	if err := json.Unmarshal(body, &entries); err == nil {
		return entries, shapeBareArray
	}

	var env dataEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		return env.Data, shapeDataObject
	}

	return nil, shapeUnknown
}

// firstToken returns the token from the first entry, preferring entries
// that match the wanted provider when that field is populated.
func firstToken(entries []tokenEntry, provider string) (Token, bool) {
	for _, e := range entries {
		if e.Provider != "" && provider != "" && e.Provider != provider {
			continue
		}

		if e.Token != "" {
			return e.toToken(), true
		}
	}

	return Token{}, false
}
