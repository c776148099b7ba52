package content

import (
	"fmt"
	"io"
	gomath "math"

	"github.com/emberworks/ember/engine/math"
)

// max bytes a 7-bit encoded 32-bit integer may occupy
const max7BitBytes = 5

/**
 * @brief A forward-only reader over a compiled asset payload. Every
 * read either succeeds and advances the cursor or fails the whole load;
 * there is no partial-value recovery. All multi-byte values are
 * little-endian.
 */
type BinaryCursor struct {
	r       io.Reader
	pos     int64
	scratch [64]byte
}

func NewBinaryCursor(r io.Reader) *BinaryCursor {
	return &BinaryCursor{r: r}
}

// Position returns the number of bytes consumed so far. Used for error
// diagnostics.
func (c *BinaryCursor) Position() int64 {
	return c.pos
}

// Remaining returns the number of unread payload bytes, or -1 when the
// underlying reader does not expose its length.
func (c *BinaryCursor) Remaining() int {
	if l, ok := c.r.(interface{ Len() int }); ok {
		return l.Len()
	}
	return -1
}

func (c *BinaryCursor) fill(n int) ([]byte, error) {
	buf := c.scratch[:n]
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, fmt.Errorf("unexpected end of stream at offset %d: %w", c.pos, err)
	}
	c.pos += int64(n)
	return buf, nil
}

func (c *BinaryCursor) ReadUint8() (uint8, error) {
	b, err := c.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *BinaryCursor) ReadInt8() (int8, error) {
	v, err := c.ReadUint8()
	return int8(v), err
}

func (c *BinaryCursor) ReadBool() (bool, error) {
	v, err := c.ReadUint8()
	return v != 0, err
}

func (c *BinaryCursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative byte count %d at offset %d", n, c.pos)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, fmt.Errorf("unexpected end of stream at offset %d: %w", c.pos, err)
	}
	c.pos += int64(n)
	return buf, nil
}

func (c *BinaryCursor) ReadUint16() (uint16, error) {
	b, err := c.fill(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (c *BinaryCursor) ReadInt16() (int16, error) {
	v, err := c.ReadUint16()
	return int16(v), err
}

func (c *BinaryCursor) ReadUint32() (uint32, error) {
	b, err := c.fill(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (c *BinaryCursor) ReadInt32() (int32, error) {
	v, err := c.ReadUint32()
	return int32(v), err
}

func (c *BinaryCursor) ReadUint64() (uint64, error) {
	b, err := c.fill(8)
	if err != nil {
		return 0, err
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56, nil
}

func (c *BinaryCursor) ReadInt64() (int64, error) {
	v, err := c.ReadUint64()
	return int64(v), err
}

func (c *BinaryCursor) ReadFloat32() (float32, error) {
	v, err := c.ReadUint32()
	if err != nil {
		return 0, err
	}
	return gomath.Float32frombits(v), nil
}

func (c *BinaryCursor) ReadFloat64() (float64, error) {
	v, err := c.ReadUint64()
	if err != nil {
		return 0, err
	}
	return gomath.Float64frombits(v), nil
}

// Read7BitEncodedInt reads a variable-length unsigned integer: 7 value
// bits per byte, high bit set meaning more bytes follow. Encodings
// longer than 5 bytes cannot fit 32 bits and are malformed. Negative
// table indices arrive as their unsigned two's-complement form.
func (c *BinaryCursor) Read7BitEncodedInt() (uint32, error) {
	var result uint32
	var shift uint
	for i := 0; i < max7BitBytes; i++ {
		b, err := c.ReadUint8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("malformed 7-bit encoded integer at offset %d: exceeds %d bytes", c.pos, max7BitBytes)
}

// ReadString reads a length-prefixed UTF-8 string. The length prefix is
// a 7-bit encoded byte count.
func (c *BinaryCursor) ReadString() (string, error) {
	n, err := c.Read7BitEncodedInt()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf, err := c.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadChar reads a single UTF-8 encoded rune.
func (c *BinaryCursor) ReadChar() (rune, error) {
	b0, err := c.ReadUint8()
	if err != nil {
		return 0, err
	}
	var n int
	switch {
	case b0 < 0x80:
		return rune(b0), nil
	case b0&0xE0 == 0xC0:
		n = 1
	case b0&0xF0 == 0xE0:
		n = 2
	case b0&0xF8 == 0xF0:
		n = 3
	default:
		return 0, fmt.Errorf("malformed UTF-8 character at offset %d", c.pos)
	}
	buf := make([]byte, n+1)
	buf[0] = b0
	rest, err := c.fill(n)
	if err != nil {
		return 0, err
	}
	copy(buf[1:], rest)
	for _, b := range buf[1:] {
		if b&0xC0 != 0x80 {
			return 0, fmt.Errorf("malformed UTF-8 character at offset %d", c.pos)
		}
	}
	r := []rune(string(buf))
	return r[0], nil
}

func (c *BinaryCursor) ReadVector2() (math.Vec2, error) {
	x, err := c.ReadFloat32()
	if err != nil {
		return math.Vec2{}, err
	}
	y, err := c.ReadFloat32()
	if err != nil {
		return math.Vec2{}, err
	}
	return math.Vec2{X: x, Y: y}, nil
}

func (c *BinaryCursor) ReadVector3() (math.Vec3, error) {
	v2, err := c.ReadVector2()
	if err != nil {
		return math.Vec3{}, err
	}
	z, err := c.ReadFloat32()
	if err != nil {
		return math.Vec3{}, err
	}
	return math.Vec3{X: v2.X, Y: v2.Y, Z: z}, nil
}

func (c *BinaryCursor) ReadVector4() (math.Vec4, error) {
	v3, err := c.ReadVector3()
	if err != nil {
		return math.Vec4{}, err
	}
	w, err := c.ReadFloat32()
	if err != nil {
		return math.Vec4{}, err
	}
	return math.Vec4{X: v3.X, Y: v3.Y, Z: v3.Z, W: w}, nil
}

func (c *BinaryCursor) ReadQuaternion() (math.Quaternion, error) {
	v, err := c.ReadVector4()
	return math.Quaternion(v), err
}

// ReadMatrix reads 16 sequential floats in row-major order M11..M44.
func (c *BinaryCursor) ReadMatrix() (math.Mat4, error) {
	var m math.Mat4
	for i := 0; i < 16; i++ {
		f, err := c.ReadFloat32()
		if err != nil {
			return math.Mat4{}, err
		}
		m.Data[i] = f
	}
	return m, nil
}

// ReadColor reads four sequential unsigned bytes R, G, B, A.
func (c *BinaryCursor) ReadColor() (math.Color, error) {
	b, err := c.fill(4)
	if err != nil {
		return math.Color{}, err
	}
	return math.Color{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

func (c *BinaryCursor) ReadRect() (math.Rect, error) {
	var vals [4]int32
	for i := range vals {
		v, err := c.ReadInt32()
		if err != nil {
			return math.Rect{}, err
		}
		vals[i] = v
	}
	return math.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}
