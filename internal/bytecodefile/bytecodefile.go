// Package bytecodefile implements the optional, partial bytecode file
// format described in spec §6.5: a little-endian constant pool followed
// by a flat instruction stream. Functions are not yet persistable — a
// chunk containing a Function constant cannot be written.
package bytecodefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"noxy-vm/internal/chunk"
	"noxy-vm/internal/value"
)

const (
	tagBoolean byte = 1
	tagNil     byte = 2
	tagNumber  byte = 3
	tagString  byte = 4
)

// ErrUnsupportedFunction is returned by Write when the chunk's constant
// pool holds a Function value, which this revision of the format cannot
// represent (spec §9).
var ErrUnsupportedFunction = errors.New("bytecodefile: functions are not yet persistable")

// Write serializes c in the format described in spec §6.5: a u8 constant
// count, that many tagged constants, then the raw instruction stream
// verbatim (it is already a flat byte sequence with embedded operands).
func Write(c *chunk.Chunk) ([]byte, error) {
	if len(c.Constants) > 255 {
		return nil, fmt.Errorf("bytecodefile: %d constants exceeds u8 pool length", len(c.Constants))
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(len(c.Constants)))

	for _, k := range c.Constants {
		if err := writeConstant(&buf, k); err != nil {
			return nil, err
		}
	}

	buf.Write(c.Code)
	return buf.Bytes(), nil
}

func writeConstant(buf *bytes.Buffer, v value.Value) error {
	switch v.Type {
	case value.Boolean:
		buf.WriteByte(tagBoolean)
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case value.Nil:
		buf.WriteByte(tagNil)
	case value.Number:
		buf.WriteByte(tagNumber)
		var bits [8]byte
		binary.LittleEndian.PutUint64(bits[:], math.Float64bits(v.Num))
		buf.Write(bits[:])
	case value.String:
		buf.WriteByte(tagString)
		var length [8]byte
		binary.LittleEndian.PutUint64(length[:], uint64(len(v.Str)))
		buf.Write(length[:])
		buf.WriteString(v.Str)
	default:
		return ErrUnsupportedFunction
	}
	return nil
}

// Read parses bytes previously produced by Write back into a standalone
// chunk (code + constant pool; no chunk-store context, since a
// serialized chunk by construction references no nested functions).
func Read(data []byte) (*chunk.Chunk, error) {
	if len(data) < 1 {
		return nil, errors.New("bytecodefile: truncated file")
	}
	n := int(data[0])
	pos := 1

	c := chunk.New()
	for i := 0; i < n; i++ {
		if pos >= len(data) {
			return nil, errors.New("bytecodefile: truncated constant pool")
		}
		tag := data[pos]
		pos++
		switch tag {
		case tagBoolean:
			if pos >= len(data) {
				return nil, errors.New("bytecodefile: truncated boolean constant")
			}
			c.AddConstant(value.Bool(data[pos] != 0))
			pos++
		case tagNil:
			c.AddConstant(value.NilVal())
		case tagNumber:
			if pos+8 > len(data) {
				return nil, errors.New("bytecodefile: truncated number constant")
			}
			bits := binary.LittleEndian.Uint64(data[pos : pos+8])
			c.AddConstant(value.Num(math.Float64frombits(bits)))
			pos += 8
		case tagString:
			if pos+8 > len(data) {
				return nil, errors.New("bytecodefile: truncated string length")
			}
			length := int(binary.LittleEndian.Uint64(data[pos : pos+8]))
			pos += 8
			if pos+length > len(data) {
				return nil, errors.New("bytecodefile: truncated string constant")
			}
			c.AddConstant(value.Str(string(data[pos : pos+length])))
			pos += length
		default:
			return nil, fmt.Errorf("bytecodefile: unknown constant tag %d", tag)
		}
	}

	c.Code = append(c.Code, data[pos:]...)
	c.Lines = make([]int, len(c.Code)) // line info is not preserved across a round-trip
	return c, nil
}
