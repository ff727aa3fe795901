package wamp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Serializer encodes WAMP frames for one negotiated subprotocol.
type Serializer interface {
	Subprotocol() string
	// Binary reports whether frames travel as binary WebSocket messages.
	Binary() bool
	Marshal(msg Message) ([]byte, error)
	Unmarshal(data []byte) (Message, error)
}

// SerializerFor returns the serializer named in configuration ("json" or "cbor").
func SerializerFor(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONSerializer{}, nil
	case "cbor":
		return CBORSerializer{}, nil
	}
	return nil, fmt.Errorf("unsupported wamp serializer %q", name)
}

// SerializerForSubprotocol maps a negotiated subprotocol back to its serializer.
func SerializerForSubprotocol(protocol string) (Serializer, bool) {
	switch protocol {
	case JSONSerializer{}.Subprotocol():
		return JSONSerializer{}, true
	case CBORSerializer{}.Subprotocol():
		return CBORSerializer{}, true
	}
	return nil, false
}

// JSONSerializer implements "wamp.2.json".
type JSONSerializer struct{}

func (JSONSerializer) Subprotocol() string { return "wamp.2.json" }

func (JSONSerializer) Binary() bool { return false }

func (JSONSerializer) Marshal(msg Message) ([]byte, error) {
	return json.Marshal([]any(msg))
}

func (JSONSerializer) Unmarshal(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var msg []any
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	return Message(normalizeJSON(msg).([]any)), nil
}

// normalizeJSON turns json.Number into int64 where exact, float64 otherwise,
// so callers see the same shapes as with CBOR.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = normalizeJSON(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeJSON(t[k])
		}
		return t
	default:
		return v
	}
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	if cborEnc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic("wamp: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("wamp: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORSerializer implements "wamp.2.cbor".
type CBORSerializer struct{}

func (CBORSerializer) Subprotocol() string { return "wamp.2.cbor" }

func (CBORSerializer) Binary() bool { return true }

func (CBORSerializer) Marshal(msg Message) ([]byte, error) {
	return cborEnc.Marshal([]any(msg))
}

func (CBORSerializer) Unmarshal(data []byte) (Message, error) {
	var msg []any
	if err := cborDec.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return Message(msg), nil
}
