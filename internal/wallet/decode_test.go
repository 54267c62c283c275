package wallet

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntriesShapes(t *testing.T) {
	payload := `[{"token":"tok-1","provider":"google","expires_at":0}]`

	doubleEncoded, err := json.Marshal(payload)
	require.NoError(t, err)

	tests := []struct {
		name      string
		body      string
		wantShape shape
		wantLen   int
	}{
		{"bare array", payload, shapeBareArray, 1},
		{"data envelope", `{"data":` + payload + `}`, shapeDataObject, 1},
		{"double-encoded string", string(doubleEncoded), shapeJSONString, 1},
		{"empty bare array", `[]`, shapeBareArray, 0},
		{"empty data envelope", `{"data":[]}`, shapeDataObject, 0},
		{"unrecognized object", `{"tokens":["tok-1"]}`, shapeUnknown, 0},
		{"plain text", `not json at all`, shapeUnknown, 0},
		{"json number", `42`, shapeUnknown, 0},
		{"string that is not json inside", `"hello there"`, shapeUnknown, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries, s := decodeEntries([]byte(tc.body))
			assert.Equal(t, tc.wantShape, s)
			assert.Len(t, entries, tc.wantLen)
		})
	}
}

// All three recognized encodings of the same payload must decode to the
// same entries.
func TestDecodeEntriesShapeEquivalence(t *testing.T) {
	payload := `[{"token":"tok-1","provider":"google","expires_at":1700000000,"scopes":["drive.file"]}]`

	doubleEncoded, err := json.Marshal(payload)
	require.NoError(t, err)

	bodies := map[string]string{
		"bare array":    payload,
		"data envelope": `{"data":` + payload + `}`,
		"json string":   string(doubleEncoded),
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			entries, s := decodeEntries([]byte(body))
			require.NotEqual(t, shapeUnknown, s)
			require.Len(t, entries, 1)

			assert.Equal(t, "tok-1", entries[0].Token)
			assert.Equal(t, "google", entries[0].Provider)
			assert.Equal(t, int64(1700000000), entries[0].ExpiresAt)
			assert.Equal(t, []string{"drive.file"}, entries[0].Scopes)
		})
	}
}

func TestFirstToken(t *testing.T) {
	tests := []struct {
		name     string
		entries  []tokenEntry
		provider string
		want     string
		wantOK   bool
	}{
		{
			name:     "single match",
			entries:  []tokenEntry{{Token: "tok-1", Provider: "google"}},
			provider: "google",
			want:     "tok-1",
			wantOK:   true,
		},
		{
			name: "prefers matching provider",
			entries: []tokenEntry{
				{Token: "tok-gh", Provider: "github"},
				{Token: "tok-g", Provider: "google"},
			},
			provider: "google",
			want:     "tok-g",
			wantOK:   true,
		},
		{
			name:     "entry without provider field matches anything",
			entries:  []tokenEntry{{Token: "tok-1"}},
			provider: "google",
			want:     "tok-1",
			wantOK:   true,
		},
		{
			name: "skips empty token values",
			entries: []tokenEntry{
				{Token: "", Provider: "google"},
				{Token: "tok-2", Provider: "google"},
			},
			provider: "google",
			want:     "tok-2",
			wantOK:   true,
		},
		{
			name:     "no entries",
			entries:  nil,
			provider: "google",
			wantOK:   false,
		},
		{
			name:     "only wrong provider",
			entries:  []tokenEntry{{Token: "tok-gh", Provider: "github"}},
			provider: "google",
			wantOK:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok, ok := firstToken(tc.entries, tc.provider)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, tok.Value)
		})
	}
}

func TestTokenEntryToToken(t *testing.T) {
	withExpiry := tokenEntry{Token: "tok-1", ExpiresAt: 1700000000}
	tok := withExpiry.toToken()
	assert.Equal(t, "tok-1", tok.Value)
	assert.Equal(t, time.Unix(1700000000, 0), tok.Expiry)

	noExpiry := tokenEntry{Token: "tok-2"}
	tok = noExpiry.toToken()
	assert.True(t, tok.Expiry.IsZero())
}

func TestTokenValid(t *testing.T) {
	assert.False(t, Token{}.Valid())
	assert.True(t, Token{Value: "tok"}.Valid())
	assert.True(t, Token{Value: "tok", Expiry: time.Now().Add(time.Hour)}.Valid())
	assert.False(t, Token{Value: "tok", Expiry: time.Now().Add(-time.Hour)}.Valid())
	assert.False(t, Token{Expiry: time.Now().Add(time.Hour)}.Valid())
}
