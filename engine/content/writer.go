package content

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	gomath "math"

	"github.com/emberworks/ember/engine/math"
)

/**
 * @brief The write-side mirror of BinaryCursor. Backed by an in-memory
 * buffer; writes cannot fail until the stream is assembled.
 */
type BinaryWriter struct {
	buf bytes.Buffer
}

func NewBinaryWriter() *BinaryWriter {
	return &BinaryWriter{}
}

func (w *BinaryWriter) Len() int      { return w.buf.Len() }
func (w *BinaryWriter) Bytes() []byte { return w.buf.Bytes() }

func (w *BinaryWriter) WriteUint8(v uint8)  { w.buf.WriteByte(v) }
func (w *BinaryWriter) WriteInt8(v int8)    { w.buf.WriteByte(byte(v)) }
func (w *BinaryWriter) WriteBytes(p []byte) { w.buf.Write(p) }

func (w *BinaryWriter) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *BinaryWriter) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *BinaryWriter) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *BinaryWriter) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *BinaryWriter) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *BinaryWriter) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *BinaryWriter) WriteInt64(v int64)     { w.WriteUint64(uint64(v)) }
func (w *BinaryWriter) WriteFloat32(v float32) { w.WriteUint32(gomath.Float32bits(v)) }
func (w *BinaryWriter) WriteFloat64(v float64) { w.WriteUint64(gomath.Float64bits(v)) }

// Write7BitEncodedInt writes the variable-length encoding consumed by
// Read7BitEncodedInt.
func (w *BinaryWriter) Write7BitEncodedInt(v uint32) {
	for v >= 0x80 {
		w.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	w.buf.WriteByte(byte(v))
}

func (w *BinaryWriter) WriteString(s string) {
	w.Write7BitEncodedInt(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *BinaryWriter) WriteChar(r rune) {
	w.buf.WriteString(string(r))
}

func (w *BinaryWriter) WriteVector2(v math.Vec2) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
}

func (w *BinaryWriter) WriteVector3(v math.Vec3) {
	w.WriteVector2(math.Vec2{X: v.X, Y: v.Y})
	w.WriteFloat32(v.Z)
}

func (w *BinaryWriter) WriteVector4(v math.Vec4) {
	w.WriteVector3(math.Vec3{X: v.X, Y: v.Y, Z: v.Z})
	w.WriteFloat32(v.W)
}

func (w *BinaryWriter) WriteQuaternion(q math.Quaternion) {
	w.WriteVector4(math.Vec4(q))
}

func (w *BinaryWriter) WriteMatrix(m math.Mat4) {
	for i := 0; i < 16; i++ {
		w.WriteFloat32(m.Data[i])
	}
}

func (w *BinaryWriter) WriteColor(c math.Color) {
	w.buf.Write([]byte{c.R, c.G, c.B, c.A})
}

func (w *BinaryWriter) WriteRect(r math.Rect) {
	w.WriteInt32(r.X)
	w.WriteInt32(r.Y)
	w.WriteInt32(r.Width)
	w.WriteInt32(r.Height)
}

type readerTableEntry struct {
	name    string
	version int32
}

/**
 * @brief Assembles one compiled asset stream: reader table, shared
 * resource slot count, and the object payload written through Body().
 * This is the authoring side used by the pipeline tools and tests; the
 * runtime only reads.
 */
type StreamWriter struct {
	readers     []readerTableEntry
	sharedCount uint32
	body        BinaryWriter
}

func NewStreamWriter() *StreamWriter {
	return &StreamWriter{}
}

// AddReader appends a reader table entry and returns its 1-based
// reference index. Duplicate names collapse to the existing entry.
func (w *StreamWriter) AddReader(typeName string, version int32) uint32 {
	for i, e := range w.readers {
		if e.name == typeName {
			return uint32(i) + 1
		}
	}
	w.readers = append(w.readers, readerTableEntry{name: typeName, version: version})
	return uint32(len(w.readers))
}

// SetSharedResourceCount declares how many shared value slots follow
// the primary object in the body.
func (w *StreamWriter) SetSharedResourceCount(n uint32) {
	w.sharedCount = n
}

// Body is where the primary object graph and the shared values are
// written, in that order.
func (w *StreamWriter) Body() *BinaryWriter {
	return &w.body
}

// Finish assembles the header and payload and writes the complete
// stream, compressed with the given method.
func (w *StreamWriter) Finish(out io.Writer, method byte) error {
	var payload BinaryWriter
	payload.Write7BitEncodedInt(uint32(len(w.readers)))
	for _, e := range w.readers {
		payload.WriteString(e.name)
		payload.WriteInt32(e.version)
	}
	payload.Write7BitEncodedInt(w.sharedCount)
	payload.WriteBytes(w.body.Bytes())

	raw := payload.Bytes()
	encoded, err := compressPayload(method, raw)
	if err != nil {
		return err
	}

	totalSize := assetHeaderSize + len(encoded)
	if method != CompressionNone {
		totalSize += 4
	}

	var header BinaryWriter
	header.WriteBytes(assetMagic[:])
	header.WriteUint8(ContentVersion)
	header.WriteUint8(method & compressionMask)
	header.WriteUint32(uint32(totalSize))
	if method != CompressionNone {
		header.WriteUint32(uint32(len(raw)))
	}
	if _, err := out.Write(header.Bytes()); err != nil {
		return fmt.Errorf("failed to write stream header: %w", err)
	}
	if _, err := out.Write(encoded); err != nil {
		return fmt.Errorf("failed to write stream payload: %w", err)
	}
	return nil
}
