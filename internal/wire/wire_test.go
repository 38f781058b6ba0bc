package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keb77/scan/internal/value"
)

func roundTrip(t *testing.T, v value.Val) value.Val {
	t.Helper()
	buf := Encode(nil, v)
	got, rest, err := Decode(buf, value.TypeOf(v))
	require.NoError(t, err)
	assert.Empty(t, rest)
	return got
}

func TestRoundTripScalars(t *testing.T) {
	assert.True(t, roundTrip(t, value.BoolVal(true)).Equal(value.BoolVal(true)))
	assert.True(t, roundTrip(t, value.IntVal(-42)).Equal(value.IntVal(-42)))
	assert.True(t, roundTrip(t, value.FloatVal(3.25)).Equal(value.FloatVal(3.25)))
}

func TestRoundTripProduct(t *testing.T) {
	v := value.TupleVal(value.IntVal(1), value.BoolVal(false), value.FloatVal(-0.5))
	assert.True(t, roundTrip(t, v).Equal(v))
}

func TestRoundTripList(t *testing.T) {
	v := value.ListVal(value.IntType, value.IntVal(1), value.IntVal(2), value.IntVal(3))
	assert.True(t, roundTrip(t, v).Equal(v))
}

func TestRoundTripEmptyList(t *testing.T) {
	v := value.ListVal(value.IntType)
	assert.True(t, roundTrip(t, v).Equal(v))
}

func TestIntEncodingIsLittleEndian(t *testing.T) {
	buf := Encode(nil, value.IntVal(1))
	require.Len(t, buf, 4)
	assert.Equal(t, []byte{1, 0, 0, 0}, buf)
}

func TestBoolEncodingIsSingleByte(t *testing.T) {
	assert.Equal(t, []byte{1}, Encode(nil, value.BoolVal(true)))
	assert.Equal(t, []byte{0}, Encode(nil, value.BoolVal(false)))
}
