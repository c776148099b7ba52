package content

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/emberworks/ember/engine/graphics"
)

var assetMagic = [4]byte{'E', 'M', 'B', 'A'}

const (
	/** @brief The compiled asset format version this runtime produces. */
	ContentVersion byte = 5

	// magic + version + flags + total size
	assetHeaderSize = 10

	compressionMask byte = 0x03
)

// Format versions this runtime can load. An unknown version is a hard
// failure, never a warning.
var supportedVersions = map[byte]bool{
	ContentVersion: true,
}

/** @brief The disposal contract: objects holding native or device
 * resources implement it and are recorded during a load for
 * deterministic teardown at unload time. */
type Disposable interface {
	Destroy() error
}

type sharedFixup struct {
	index int
	apply func(value interface{}) error
}

/** @brief Options for reading one asset stream. */
type ReadOptions struct {
	/** @brief Owner used for external references and, by default, for
	 * disposable tracking. May be nil for bare stream reads. */
	Manager *ContentManager
	/** @brief Sink for graphics resource construction. */
	Device graphics.Device
	/** @brief Overrides the manager's disposable tracking. */
	RecordDisposable func(d Disposable)
	/** @brief Caps the shared resource slot count; 0 means the default. */
	MaxSharedResources int
}

const defaultMaxSharedResources = 1 << 20

/**
 * @brief Orchestrates reading one asset graph from a stream: reader
 * table, recursive object reads, shared-resource fixups, disposable
 * recording. One instance serves exactly one load; all per-read state
 * lives here, never in the (shared) reader instances.
 */
type AssetReader struct {
	cursor    *BinaryCursor
	manager   *ContentManager
	device    graphics.Device
	assetName string
	version   byte

	readers        []TypeReader
	readerVersions []int32

	sharedCount int
	fixups      []sharedFixup

	record func(d Disposable)
}

// ReadAsset reads a complete compiled asset stream and returns the
// fully materialized primary object. Any failure aborts the whole
// load; no partial asset graph is ever returned.
func ReadAsset(r io.Reader, assetName string, opts *ReadOptions) (interface{}, error) {
	if opts == nil {
		opts = &ReadOptions{}
	}

	var header [assetHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("asset '%s': failed to read header: %w", assetName, err)
	}
	if !bytes.Equal(header[:4], assetMagic[:]) {
		return nil, fmt.Errorf("asset '%s': bad magic %q", assetName, header[:4])
	}
	version := header[4]
	if !supportedVersions[version] {
		return nil, fmt.Errorf("asset '%s': unsupported format version %d", assetName, version)
	}
	flags := header[5]
	totalSize := binary.LittleEndian.Uint32(header[6:])

	method := flags & compressionMask
	payloadLen := int(totalSize) - assetHeaderSize
	var rawSize uint32
	if method != CompressionNone {
		var sizeBuf [4]byte
		if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
			return nil, fmt.Errorf("asset '%s': failed to read decompressed size: %w", assetName, err)
		}
		rawSize = binary.LittleEndian.Uint32(sizeBuf[:])
		payloadLen -= 4
	}
	if payloadLen < 0 {
		return nil, fmt.Errorf("asset '%s': declared size %d smaller than header", assetName, totalSize)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("asset '%s': truncated payload: %w", assetName, err)
	}
	if method != CompressionNone {
		var err error
		payload, err = decompressPayload(method, payload, rawSize)
		if err != nil {
			return nil, fmt.Errorf("asset '%s': %w", assetName, err)
		}
	}

	ar := &AssetReader{
		cursor:    NewBinaryCursor(bytes.NewReader(payload)),
		manager:   opts.Manager,
		device:    opts.Device,
		assetName: assetName,
		version:   version,
	}
	switch {
	case opts.RecordDisposable != nil:
		ar.record = opts.RecordDisposable
	case opts.Manager != nil:
		ar.record = opts.Manager.recordDisposable
	default:
		ar.record = func(Disposable) {}
	}

	if err := ar.readReaderTable(); err != nil {
		return nil, fmt.Errorf("asset '%s': %w", assetName, err)
	}

	maxShared := opts.MaxSharedResources
	if maxShared <= 0 {
		maxShared = defaultMaxSharedResources
	}
	sharedCount, err := ar.cursor.Read7BitEncodedInt()
	if err != nil {
		return nil, fmt.Errorf("asset '%s': failed to read shared resource count: %w", assetName, err)
	}
	if int(sharedCount) > maxShared {
		return nil, fmt.Errorf("asset '%s': shared resource count %d exceeds limit %d", assetName, sharedCount, maxShared)
	}
	ar.sharedCount = int(sharedCount)

	primary, err := ar.ReadObject(nil)
	if err != nil {
		return nil, fmt.Errorf("asset '%s': %w", assetName, err)
	}

	// Every shared value is materialized before any fixup runs:
	// shared resources may reference each other cyclically.
	sharedValues := make([]interface{}, ar.sharedCount)
	for i := 0; i < ar.sharedCount; i++ {
		v, err := ar.ReadObject(nil)
		if err != nil {
			return nil, fmt.Errorf("asset '%s': failed to read shared resource %d: %w", assetName, i, err)
		}
		sharedValues[i] = v
	}

	sort.SliceStable(ar.fixups, func(i, j int) bool {
		return ar.fixups[i].index < ar.fixups[j].index
	})
	for _, f := range ar.fixups {
		if f.index < 0 || f.index >= ar.sharedCount {
			return nil, fmt.Errorf("asset '%s': shared resource index %d out of range (%d declared)", assetName, f.index+1, ar.sharedCount)
		}
		if err := f.apply(sharedValues[f.index]); err != nil {
			return nil, fmt.Errorf("asset '%s': %w", assetName, err)
		}
	}
	return primary, nil
}

func (ar *AssetReader) readReaderTable() error {
	count, err := ar.cursor.Read7BitEncodedInt()
	if err != nil {
		return fmt.Errorf("failed to read reader table count: %w", err)
	}
	names := make([]string, count)
	versions := make([]int32, count)
	for i := range names {
		if names[i], err = ar.cursor.ReadString(); err != nil {
			return fmt.Errorf("failed to read reader table entry %d: %w", i, err)
		}
		if versions[i], err = ar.cursor.ReadInt32(); err != nil {
			return fmt.Errorf("failed to read reader table entry %d version: %w", i, err)
		}
	}
	readers, err := Registry().ResolveTable(names)
	if err != nil {
		return err
	}
	ar.readers = readers
	ar.readerVersions = versions
	return nil
}

// Cursor exposes the payload cursor for user-extensible readers.
func (ar *AssetReader) Cursor() *BinaryCursor {
	return ar.cursor
}

// AssetName returns the logical name of the asset being read.
func (ar *AssetReader) AssetName() string {
	return ar.assetName
}

// FormatVersion returns the stream's format version byte.
func (ar *AssetReader) FormatVersion() byte {
	return ar.version
}

// Device returns the graphics sink, or nil for device-less loads.
func (ar *AssetReader) Device() graphics.Device {
	return ar.device
}

// ReadObject reads one embedded object: a 7-bit reference index (0 =
// null, otherwise 1-based into the reader table) followed by the
// reader's payload. A successful read of a Disposable records it.
func (ar *AssetReader) ReadObject(existing interface{}) (interface{}, error) {
	idx, err := ar.cursor.Read7BitEncodedInt()
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return nil, nil
	}
	if int(idx) > len(ar.readers) {
		return nil, fmt.Errorf("reader index %d out of range (table has %d entries)", idx, len(ar.readers))
	}
	return ar.ReadRawObject(ar.readers[idx-1], existing)
}

// ReadRawObject invokes a reader directly, without the reference-index
// indirection. Used for value types, whose context already knows the
// target type.
func (ar *AssetReader) ReadRawObject(reader TypeReader, existing interface{}) (interface{}, error) {
	v, err := reader.Read(ar, existing)
	if err != nil {
		return nil, err
	}
	if d, ok := v.(Disposable); ok {
		ar.record(d)
	}
	return v, nil
}

// ReadSharedResource reads a shared-resource index and, when nonzero,
// queues the fixup for application after every shared value exists.
func (ar *AssetReader) ReadSharedResource(apply func(value interface{}) error) error {
	idx, err := ar.cursor.Read7BitEncodedInt()
	if err != nil {
		return err
	}
	if idx == 0 {
		return nil
	}
	ar.fixups = append(ar.fixups, sharedFixup{index: int(idx) - 1, apply: apply})
	return nil
}

// ReadObjectAs reads an object reference and asserts its runtime type.
// Index 0 yields T's zero value without invoking any reader.
func ReadObjectAs[T any](ar *AssetReader) (T, error) {
	var zero T
	v, err := ar.ReadObject(nil)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("object type mismatch: expected %T, actual %T", zero, v)
	}
	return tv, nil
}

// ReadShared reads a shared-resource reference with a typed fixup. A
// type mismatch when the fixup is applied fails the load, naming the
// expected and actual types.
func ReadShared[T any](ar *AssetReader, fixup func(T)) error {
	return ar.ReadSharedResource(func(value interface{}) error {
		var zero T
		if value == nil {
			fixup(zero)
			return nil
		}
		tv, ok := value.(T)
		if !ok {
			return fmt.Errorf("shared resource type mismatch: expected %T, actual %T", zero, value)
		}
		fixup(tv)
		return nil
	})
}

// ReadExternalReference reads a relative asset path and delegates to
// the owning manager's load-by-name operation. An empty path means "no
// reference".
func ReadExternalReference[T any](ar *AssetReader) (T, error) {
	var zero T
	ref, err := ar.cursor.ReadString()
	if err != nil {
		return zero, err
	}
	if ref == "" {
		return zero, nil
	}
	if ar.manager == nil {
		return zero, fmt.Errorf("external reference '%s' requires an owning content manager", ref)
	}
	resolved := resolveAssetPath(ar.assetName, ref)
	v, err := ar.manager.LoadAsset(resolved)
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("external reference '%s' type mismatch: expected %T, actual %T", ref, zero, v)
	}
	return tv, nil
}

// resolveAssetPath resolves a reference relative to the referencing
// asset's logical name. Asset names use forward slashes regardless of
// platform.
func resolveAssetPath(assetName, ref string) string {
	return path.Clean(path.Join(path.Dir(assetName), ref))
}
