package decode

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// rawField is one top-level field of a length-prefixed or varint
// protobuf message, captured without knowing the message's schema.
type rawField struct {
	Num   protowire.Number
	Type  protowire.Type
	Bytes []byte // set for BytesType
	Uint  uint64 // set for VarintType / Fixed32Type / Fixed64Type
}

// scanWire walks the top level of a protobuf-encoded message and
// returns every field it finds in encounter order, without requiring a
// descriptor. Repeated fields appear as repeated entries with the same
// Num.
func scanWire(b []byte) ([]rawField, error) {
	var out []rawField
	total := len(b)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("decode: invalid tag at offset %d", total-len(b))
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("decode: invalid bytes field %d", num)
			}
			out = append(out, rawField{Num: num, Type: typ, Bytes: v})
			b = b[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("decode: invalid varint field %d", num)
			}
			out = append(out, rawField{Num: num, Type: typ, Uint: v})
			b = b[m:]
		case protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return nil, fmt.Errorf("decode: invalid fixed32 field %d", num)
			}
			out = append(out, rawField{Num: num, Type: typ, Uint: uint64(v)})
			b = b[m:]
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return nil, fmt.Errorf("decode: invalid fixed64 field %d", num)
			}
			out = append(out, rawField{Num: num, Type: typ, Uint: v})
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, fmt.Errorf("decode: invalid field %d type %v", num, typ)
			}
			b = b[m:]
		}
	}
	return out, nil
}

// firstString returns the string value of the first BytesType field
// with the given number, interpreted as UTF-8 text.
func firstString(fields []rawField, num protowire.Number) string {
	for _, f := range fields {
		if f.Num == num && f.Type == protowire.BytesType {
			return string(f.Bytes)
		}
	}
	return ""
}

// firstBytes returns the raw bytes of the first BytesType field with
// the given number.
func firstBytes(fields []rawField, num protowire.Number) []byte {
	for _, f := range fields {
		if f.Num == num && f.Type == protowire.BytesType {
			return f.Bytes
		}
	}
	return nil
}

// firstUint returns the value of the first varint-family field with
// the given number.
func firstUint(fields []rawField, num protowire.Number) uint64 {
	for _, f := range fields {
		if f.Num == num {
			return f.Uint
		}
	}
	return 0
}

// allBytes returns the raw bytes of every BytesType field with the
// given number, in encounter order, for decoding repeated message
// fields.
func allBytes(fields []rawField, num protowire.Number) [][]byte {
	var out [][]byte
	for _, f := range fields {
		if f.Num == num && f.Type == protowire.BytesType {
			out = append(out, f.Bytes)
		}
	}
	return out
}
