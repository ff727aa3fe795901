package wamp

import (
	"encoding/json"
	"math"
)

// Message codes of the WAMP v2 basic profile used by WAAPI.
const (
	MsgHello        = 1
	MsgWelcome      = 2
	MsgAbort        = 3
	MsgGoodbye      = 6
	MsgError        = 8
	MsgSubscribe    = 32
	MsgSubscribed   = 33
	MsgUnsubscribe  = 34
	MsgUnsubscribed = 35
	MsgEvent        = 36
	MsgCall         = 48
	MsgResult       = 50
)

const (
	// DefaultRealm is the realm WAAPI routers serve.
	DefaultRealm = "realm1"

	closeNormal       = "wamp.close.normal"
	closeGoodbyeReply = "wamp.close.goodbye_and_out"
)

// Message is one decoded WAMP frame: a code followed by positional elements.
type Message []any

// Code returns the message type, or 0 when the frame is malformed.
func (m Message) Code() int {
	if len(m) == 0 {
		return 0
	}
	v, _ := ToInt64(m[0])
	return int(v)
}

// Int64 returns element i as an integer.
func (m Message) Int64(i int) (int64, bool) {
	if i >= len(m) {
		return 0, false
	}
	return ToInt64(m[i])
}

// String returns element i as a string.
func (m Message) String(i int) string {
	if i >= len(m) {
		return ""
	}
	s, _ := m[i].(string)
	return s
}

// List returns element i as a list, or nil.
func (m Message) List(i int) []any {
	if i >= len(m) {
		return nil
	}
	l, _ := m[i].([]any)
	return l
}

// Dict returns element i as a dictionary, or nil.
func (m Message) Dict(i int) map[string]any {
	if i >= len(m) {
		return nil
	}
	return ToDict(m[i])
}

// ToInt64 normalizes the integer representations produced by the JSON and
// CBOR decoders.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// ToDict converts decoded maps to map[string]any. CBOR payloads may decode
// with interface keys when the peer sends non-string keys.
func ToDict(v any) map[string]any {
	switch d := v.(type) {
	case map[string]any:
		return d
	case map[any]any:
		out := make(map[string]any, len(d))
		for k, val := range d {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out
	default:
		return nil
	}
}
