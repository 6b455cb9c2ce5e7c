package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a sealed interface over the typed results of argument validation.
// Only Int, Float, Text and RGB implement it.
type Value interface {
	argValue() // Sealed
	String() string
}

// Int is an integer argument (blur level, angle, threshold, canvas size).
type Int int64

func (Int) argValue() {}

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Float is a fractional argument (noise strength).
type Float float64

func (Float) argValue() {}

func (v Float) String() string { return FormatNumber(float64(v)) }

// Text is an uncoerced argument (concat direction).
type Text string

func (Text) argValue() {}

func (v Text) String() string { return string(v) }

// RGB is a parsed color argument.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (RGB) argValue() {}

func (v RGB) String() string { return fmt.Sprintf("(%d, %d, %d)", v.R, v.G, v.B) }

// FormatNumber renders a number in its shortest round-trip form ("32", "0.5").
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// encodedValue is the JSON envelope for a Value.
type encodedValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// EncodeValue renders a Value as a tagged JSON object.
func EncodeValue(v Value) ([]byte, error) {
	var (
		tag string
		raw any
	)
	switch x := v.(type) {
	case Int:
		tag, raw = "int", int64(x)
	case Float:
		tag, raw = "float", float64(x)
	case Text:
		tag, raw = "text", string(x)
	case RGB:
		tag, raw = "rgb", x
	case nil:
		return nil, fmt.Errorf("cannot encode nil value")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encodedValue{Type: tag, Value: body})
}

// DecodeValue parses the output of EncodeValue.
func DecodeValue(data []byte) (Value, error) {
	var env encodedValue
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	switch env.Type {
	case "int":
		var n int64
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return nil, fmt.Errorf("decode int: %w", err)
		}
		return Int(n), nil
	case "float":
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return nil, fmt.Errorf("decode float: %w", err)
		}
		return Float(f), nil
	case "text":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, fmt.Errorf("decode text: %w", err)
		}
		return Text(s), nil
	case "rgb":
		var c RGB
		if err := json.Unmarshal(env.Value, &c); err != nil {
			return nil, fmt.Errorf("decode rgb: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown value type %q", env.Type)
	}
}
