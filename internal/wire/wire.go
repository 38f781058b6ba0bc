// Package wire encodes value.Val in a stable, inspectable byte form. It is
// never used as SCAN's internal data path; internal/sim's Execute driver
// is its one caller, encoding the payload each chosen move carries (a
// sent message, a delivered event) so an execute trace's Step.Format can
// render it alongside the move's source/action/target without printing
// value.Val's Go representation directly.
//
// Format: Bool as a single 0/1 byte, Int as little-endian int32, Float
// as little-endian IEEE-754 binary64, Product as its components
// concatenated in order, List as a little-endian uint32 length prefix
// followed by its elements concatenated in order.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/keb77/scan/internal/value"
)

// Encode appends v's wire encoding to dst and returns the extended slice.
func Encode(dst []byte, v value.Val) []byte {
	switch v.Kind() {
	case value.Bool:
		if v.Bool() {
			return append(dst, 1)
		}
		return append(dst, 0)

	case value.Int:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(v.Int()))
		return append(dst, buf[:]...)

	case value.Float:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.Float().Float64()))
		return append(dst, buf[:]...)

	case value.Product:
		for _, c := range v.Components() {
			dst = Encode(dst, c)
		}
		return dst

	case value.List:
		elems := v.Elements()
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(elems)))
		dst = append(dst, lenBuf[:]...)
		for _, e := range elems {
			dst = Encode(dst, e)
		}
		return dst

	default:
		panic(fmt.Sprintf("wire: unknown value kind %v", v.Kind()))
	}
}

// Decode reads one value of type t from the front of src, returning the
// value and the remaining, unconsumed bytes.
func Decode(src []byte, t value.Type) (value.Val, []byte, error) {
	switch t.Kind() {
	case value.Bool:
		if len(src) < 1 {
			return value.Val{}, nil, fmt.Errorf("wire: Bool needs 1 byte, got %d", len(src))
		}
		return value.BoolVal(src[0] != 0), src[1:], nil

	case value.Int:
		if len(src) < 4 {
			return value.Val{}, nil, fmt.Errorf("wire: Int needs 4 bytes, got %d", len(src))
		}
		i := int32(binary.LittleEndian.Uint32(src[:4]))
		return value.IntVal(i), src[4:], nil

	case value.Float:
		if len(src) < 8 {
			return value.Val{}, nil, fmt.Errorf("wire: Float needs 8 bytes, got %d", len(src))
		}
		bits := binary.LittleEndian.Uint64(src[:8])
		return value.FloatVal(math.Float64frombits(bits)), src[8:], nil

	case value.Product:
		comps := make([]value.Val, len(t.Components()))
		rest := src
		for i, ct := range t.Components() {
			var v value.Val
			var err error
			v, rest, err = Decode(rest, ct)
			if err != nil {
				return value.Val{}, nil, err
			}
			comps[i] = v
		}
		return value.TupleVal(comps...), rest, nil

	case value.List:
		if len(src) < 4 {
			return value.Val{}, nil, fmt.Errorf("wire: List length prefix needs 4 bytes, got %d", len(src))
		}
		n := binary.LittleEndian.Uint32(src[:4])
		rest := src[4:]
		elems := make([]value.Val, 0, n)
		for i := uint32(0); i < n; i++ {
			var v value.Val
			var err error
			v, rest, err = Decode(rest, t.Elem())
			if err != nil {
				return value.Val{}, nil, err
			}
			elems = append(elems, v)
		}
		return value.ListVal(t.Elem(), elems...), rest, nil

	default:
		return value.Val{}, nil, fmt.Errorf("wire: unknown type kind %v", t.Kind())
	}
}
