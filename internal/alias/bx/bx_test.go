package bx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLittleEndianReadWrite verifies that PutU16/U32/U64 and U16/U32/U64
// correctly round-trip values using little-endian encoding.
func TestLittleEndianReadWrite(t *testing.T) {
	{
		b := make([]byte, 2)
		var v uint16 = 0x1234

		PutU16(b, v)
		// in LE, least-significant byte goes first
		assert.Equal(t, []byte{0x34, 0x12}, b)
		assert.Equal(t, v, U16(b))
	}

	{
		b := make([]byte, 4)
		var v uint32 = 0x01020304

		PutU32(b, v)
		assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
		assert.Equal(t, v, U32(b))
	}

	{
		b := make([]byte, 8)
		var v uint64 = 0x0102030405060708

		PutU64(b, v)
		assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b)
		assert.Equal(t, v, U64(b))
	}
}

func TestWriterReader_Fields(t *testing.T) {
	w := NewWriter(64)
	w.U8(7)
	w.U16(0xBEEF)
	w.U32(42)
	w.I64(-5)
	w.F64(3.25)
	w.Bool(true)
	w.String("orders")
	w.Blob([]byte{1, 2, 3})
	w.Raw([]byte{9, 9})

	r := NewReader(w.Bytes())
	require.Equal(t, uint8(7), r.U8())
	require.Equal(t, uint16(0xBEEF), r.U16())
	require.Equal(t, uint32(42), r.U32())
	require.Equal(t, int64(-5), r.I64())
	require.Equal(t, 3.25, r.F64())
	require.True(t, r.Bool())
	require.Equal(t, "orders", r.String())
	require.Equal(t, []byte{1, 2, 3}, r.Blob())
	require.Equal(t, []byte{9, 9}, r.Raw(2))
	require.NoError(t, r.Err())
	require.Equal(t, 0, r.Remaining())
}

func TestReader_ShortBufferSticks(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	require.Equal(t, uint32(0), r.U32())
	require.ErrorIs(t, r.Err(), ErrShortBuffer)

	// Later reads keep failing instead of reading garbage.
	require.Equal(t, uint8(0), r.U8())
	require.ErrorIs(t, r.Err(), ErrShortBuffer)
}

func TestReader_StringLengthPastEnd(t *testing.T) {
	w := NewWriter(8)
	w.U32(100)
	w.Raw([]byte("abc"))

	r := NewReader(w.Bytes())
	require.Equal(t, "", r.String())
	require.ErrorIs(t, r.Err(), ErrShortBuffer)
}
