// Package persist turns tables into durable images and manages the files
// holding them.
package persist

import (
	"fmt"
	"hash/crc32"
	"time"

	"github.com/tuannm99/coldb/internal/alias/bx"
	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/index"
	"github.com/tuannm99/coldb/internal/record"
)

// Image layout, little endian:
//
//	magic "CDBT" | version u16 | table id u32 | name str
//	next column id u32 | next row id u64 | row count u32
//	column count u32 | { id u32 | name str | type u8 }*
//	index count u32 | { column id u32 | kind u8 }*
//	row ids u64 * rows
//	per column: null bitmap (rows+7)/8 bytes | non-null values
//	crc32 (IEEE) of everything before it
//
// str and OBJECT values carry a u32 length prefix. DATE is stored as Unix
// seconds of its UTC midnight.
const (
	imageMagic   = "CDBT"
	imageVersion = 1
)

// Encode serializes a table image.
func Encode(img *colstore.Image) ([]byte, error) {
	rows := len(img.RowIDs)
	w := bx.NewWriter(64 + rows*8*(len(img.Columns)+1))
	w.Raw([]byte(imageMagic))
	w.U16(imageVersion)
	w.U32(uint32(img.ID))
	w.String(img.Name)
	w.U32(uint32(img.NextColumnID))
	w.U64(uint64(img.NextRowID))
	w.U32(uint32(rows))

	w.U32(uint32(len(img.Columns)))
	for _, c := range img.Columns {
		w.U32(uint32(c.ID))
		w.String(c.Name)
		w.U8(uint8(c.Type))
	}
	w.U32(uint32(len(img.Indexes)))
	for _, ix := range img.Indexes {
		w.U32(uint32(ix.Column))
		w.U8(uint8(ix.Kind))
	}
	for _, id := range img.RowIDs {
		w.U64(uint64(id))
	}

	for _, c := range img.Columns {
		if len(c.Values) != rows {
			return nil, fmt.Errorf("encode %s.%s: %d values for %d rows: %w",
				img.Name, c.Name, len(c.Values), rows, dberr.ErrInvalidValue)
		}
		nulls := make([]byte, (rows+7)/8)
		for i, v := range c.Values {
			if v == nil {
				nulls[i/8] |= 1 << (i % 8)
			}
		}
		w.Raw(nulls)
		for _, v := range c.Values {
			if v == nil {
				continue
			}
			if err := encodeValue(w, c.Type, v); err != nil {
				return nil, fmt.Errorf("encode %s.%s: %w", img.Name, c.Name, err)
			}
		}
	}

	w.U32(crc32.ChecksumIEEE(w.Bytes()))
	return w.Bytes(), nil
}

func encodeValue(w *bx.Writer, typ record.ColumnType, v any) error {
	ok := false
	switch typ {
	case record.ColInteger:
		var x int64
		if x, ok = v.(int64); ok {
			w.I64(x)
		}
	case record.ColDouble:
		var x float64
		if x, ok = v.(float64); ok {
			w.F64(x)
		}
	case record.ColString:
		var x string
		if x, ok = v.(string); ok {
			w.String(x)
		}
	case record.ColBoolean:
		var x bool
		if x, ok = v.(bool); ok {
			w.Bool(x)
		}
	case record.ColDate:
		var x time.Time
		if x, ok = v.(time.Time); ok {
			w.I64(x.Unix())
		}
	case record.ColObject:
		var x []byte
		if x, ok = v.([]byte); ok {
			w.Blob(x)
		}
	}
	if !ok {
		return fmt.Errorf("%T in %v column: %w", v, typ, dberr.ErrTypeMismatch)
	}
	return nil
}

// Decode parses and verifies an image produced by Encode.
func Decode(data []byte) (*colstore.Image, error) {
	if len(data) < len(imageMagic)+4 {
		return nil, fmt.Errorf("image of %d bytes: %w", len(data), dberr.ErrCorruptImage)
	}
	body, sum := data[:len(data)-4], bx.U32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return nil, fmt.Errorf("checksum mismatch: %w", dberr.ErrCorruptImage)
	}

	r := bx.NewReader(body)
	if string(r.Raw(len(imageMagic))) != imageMagic {
		return nil, fmt.Errorf("bad magic: %w", dberr.ErrCorruptImage)
	}
	if v := r.U16(); v != imageVersion {
		return nil, fmt.Errorf("image version %d: %w", v, dberr.ErrCorruptImage)
	}

	img := &colstore.Image{
		ID:           record.TableID(r.U32()),
		Name:         r.String(),
		NextColumnID: record.ColumnID(r.U32()),
		NextRowID:    record.RowID(r.U64()),
	}
	rows := int(r.U32())
	// every row needs at least its 8-byte id
	if rows > r.Remaining()/8 {
		return nil, corrupt(r, "row count")
	}

	ncols := int(r.U32())
	if ncols > r.Remaining()/6 {
		return nil, corrupt(r, "column count")
	}
	for i := 0; i < ncols; i++ {
		img.Columns = append(img.Columns, colstore.ColumnImage{
			ID:   record.ColumnID(r.U32()),
			Name: r.String(),
			Type: record.ColumnType(r.U8()),
		})
	}
	nidx := int(r.U32())
	if nidx > r.Remaining()/5 {
		return nil, corrupt(r, "index count")
	}
	for i := 0; i < nidx; i++ {
		ii := colstore.IndexImage{Column: record.ColumnID(r.U32()), Kind: index.Kind(r.U8())}
		if !ii.Kind.Valid() {
			return nil, fmt.Errorf("index kind %d: %w", ii.Kind, dberr.ErrCorruptImage)
		}
		img.Indexes = append(img.Indexes, ii)
	}

	img.RowIDs = make([]record.RowID, rows)
	for i := range img.RowIDs {
		img.RowIDs[i] = record.RowID(r.U64())
	}

	for ci := range img.Columns {
		c := &img.Columns[ci]
		if !c.Type.Valid() {
			return nil, fmt.Errorf("column %s type %d: %w", c.Name, c.Type, dberr.ErrCorruptImage)
		}
		nulls := r.Raw((rows + 7) / 8)
		if r.Err() != nil {
			return nil, corrupt(r, "null bitmap")
		}
		c.Values = make([]any, rows)
		for i := range c.Values {
			if nulls[i/8]&(1<<(i%8)) != 0 {
				continue
			}
			c.Values[i] = decodeValue(r, c.Type)
		}
		if r.Err() != nil {
			return nil, corrupt(r, "column "+c.Name)
		}
	}

	if r.Err() != nil {
		return nil, corrupt(r, "header")
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes: %w", r.Remaining(), dberr.ErrCorruptImage)
	}
	return img, nil
}

func decodeValue(r *bx.Reader, typ record.ColumnType) any {
	switch typ {
	case record.ColInteger:
		return r.I64()
	case record.ColDouble:
		return r.F64()
	case record.ColString:
		return r.String()
	case record.ColBoolean:
		return r.Bool()
	case record.ColDate:
		return time.Unix(r.I64(), 0).UTC()
	case record.ColObject:
		return r.Blob()
	}
	return nil
}

func corrupt(r *bx.Reader, what string) error {
	return fmt.Errorf("%s at offset %d: %w", what, r.Offset(), dberr.ErrCorruptImage)
}
