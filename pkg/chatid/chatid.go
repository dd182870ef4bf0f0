// Package chatid normalizes chat identifiers delivered by the backend.
//
// Room and chat ids are 64-bit integers that routinely exceed the range a
// float64 can hold exactly (2^53). The backend emits them as bare JSON
// numbers, so they are rewritten into quoted strings before decoding and
// carried as exact decimal strings from then on.
package chatid

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// DefaultKeys are the JSON keys whose numeric values are treated as ids in
// chat stream payloads and chat responses.
var DefaultKeys = []string{"roomId", "userChatId", "llmChatId"}

var defaultPattern = compile(DefaultKeys)

func compile(keys []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keys))
	for _, k := range keys {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	return regexp.MustCompile(`("(?:` + strings.Join(quoted, "|") + `)"\s*:\s*)(\d+)`)
}

// QuoteIDTokens rewrites bare integer literals bound to DefaultKeys into
// quoted strings so that the subsequent JSON decode cannot lose precision.
// Input that is not JSON passes through untouched.
func QuoteIDTokens(raw []byte) []byte {
	return defaultPattern.ReplaceAll(raw, []byte(`$1"$2"`))
}

// QuoteTokens is QuoteIDTokens for an explicit key set.
func QuoteTokens(raw []byte, keys ...string) []byte {
	if len(keys) == 0 {
		return raw
	}
	return compile(keys).ReplaceAll(raw, []byte(`$1"$2"`))
}

// Normalize converts an id value of unknown shape into its canonical
// decimal string form. Strings that parse as base-10 integers are
// round-tripped through an arbitrary precision integer; other strings are
// returned unchanged. Numeric values are formatted exactly. Anything else
// (nil, bool, objects) yields "".
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return normalizeString(t)
	case json.Number:
		return normalizeString(t.String())
	case *big.Int:
		if t == nil {
			return ""
		}
		return t.String()
	case big.Int:
		return t.String()
	case float32:
		return formatFloat(float64(t))
	case float64:
		return formatFloat(t)
	case ID:
		return normalizeString(string(t))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	default:
		return ""
	}
}

func normalizeString(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}

	n, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return s
	}
	return n.String()
}

// formatFloat renders a float that already lost precision as the exact
// integer it now represents. Non-integral values fall back to the shortest
// decimal representation.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	bf := new(big.Float).SetFloat64(f)
	if bf.IsInt() {
		n, _ := bf.Int(nil)
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
