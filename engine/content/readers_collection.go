package content

import (
	"fmt"
	"reflect"

	"github.com/emberworks/ember/engine/math"
)

// Collection payloads carry a fixed uint32 element count; the 7-bit
// varint encoding is reserved for reference indices, string lengths and
// the stream's table counts.

// checkElementCount rejects counts that cannot fit in the remaining
// payload; every element occupies at least one byte. Stops a short
// hostile stream from requesting an arbitrarily large allocation.
func checkElementCount(ar *AssetReader, count uint32, of string) error {
	if remaining := ar.cursor.Remaining(); remaining >= 0 && int64(count) > int64(remaining) {
		return fmt.Errorf("%s element count %d exceeds remaining stream size %d", of, count, remaining)
	}
	return nil
}

func genericArg(t TypeName, i int, of string) (string, error) {
	if i >= len(t.GenericArgs) {
		return "", fmt.Errorf("%s requires %d generic argument(s), got %d", of, i+1, len(t.GenericArgs))
	}
	return t.GenericArgs[i].String(), nil
}

/** @brief Reads an enum value through its backing integer reader.
 * Streams omitting the argument default to a 32-bit backing type. */
type enumReader struct {
	backingName string
	backing     TypeReader
}

func newEnumReader(t TypeName) (TypeReader, error) {
	name := "Ember.Content.Int32Reader"
	if len(t.GenericArgs) > 0 {
		name = t.GenericArgs[0].String()
	}
	return &enumReader{backingName: name}, nil
}

func (r *enumReader) TargetType() string { return "Enum" }
func (r *enumReader) IsValueType() bool  { return true }

func (r *enumReader) Initialize(res Resolver) error {
	rd, err := res.Resolve(r.backingName)
	if err != nil {
		return err
	}
	if !rd.IsValueType() {
		return fmt.Errorf("enum backing reader '%s' must be a value type", r.backingName)
	}
	r.backing = rd
	return nil
}

func (r *enumReader) Read(ar *AssetReader, existing interface{}) (interface{}, error) {
	return ar.ReadRawObject(r.backing, existing)
}

/** @brief Reads an optional value: a presence byte followed, when set,
 * by the wrapped value read inline. Absent values yield nil. */
type nullableReader struct {
	elemName string
	elem     TypeReader
}

func newNullableReader(t TypeName) (TypeReader, error) {
	name, err := genericArg(t, 0, "NullableReader")
	if err != nil {
		return nil, err
	}
	return &nullableReader{elemName: name}, nil
}

func (r *nullableReader) TargetType() string { return "Nullable" }
func (r *nullableReader) IsValueType() bool  { return true }

func (r *nullableReader) Initialize(res Resolver) error {
	rd, err := res.Resolve(r.elemName)
	if err != nil {
		return err
	}
	r.elem = rd
	return nil
}

func (r *nullableReader) Read(ar *AssetReader, _ interface{}) (interface{}, error) {
	has, err := ar.cursor.ReadBool()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return ar.readElement(r.elem)
}

/** @brief Reads a fixed-count element sequence. Common element types
 * materialize as typed slices; everything else falls back to
 * []interface{}. */
type arrayReader struct {
	target   string
	elemName string
	elem     TypeReader
}

func newArrayReader(t TypeName) (TypeReader, error) {
	name, err := genericArg(t, 0, "ArrayReader")
	if err != nil {
		return nil, err
	}
	return &arrayReader{target: "Array", elemName: name}, nil
}

func newListReader(t TypeName) (TypeReader, error) {
	name, err := genericArg(t, 0, "ListReader")
	if err != nil {
		return nil, err
	}
	return &arrayReader{target: "List", elemName: name}, nil
}

func (r *arrayReader) TargetType() string { return r.target }
func (r *arrayReader) IsValueType() bool  { return false }

func (r *arrayReader) Initialize(res Resolver) error {
	rd, err := res.Resolve(r.elemName)
	if err != nil {
		return err
	}
	r.elem = rd
	return nil
}

func (r *arrayReader) Read(ar *AssetReader, _ interface{}) (interface{}, error) {
	count, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := checkElementCount(ar, count, r.target); err != nil {
		return nil, err
	}
	n := int(count)
	switch r.elem.TargetType() {
	case "Byte":
		return readTypedSlice[uint8](ar, r.elem, n)
	case "Int32":
		return readTypedSlice[int32](ar, r.elem, n)
	case "UInt32":
		return readTypedSlice[uint32](ar, r.elem, n)
	case "Single":
		return readTypedSlice[float32](ar, r.elem, n)
	case "String":
		return readTypedSlice[string](ar, r.elem, n)
	case "Char":
		return readTypedSlice[rune](ar, r.elem, n)
	case "Vector2":
		return readTypedSlice[math.Vec2](ar, r.elem, n)
	case "Vector3":
		return readTypedSlice[math.Vec3](ar, r.elem, n)
	case "Rectangle":
		return readTypedSlice[math.Rect](ar, r.elem, n)
	case "Color":
		return readTypedSlice[math.Color](ar, r.elem, n)
	case "Matrix":
		return readTypedSlice[math.Mat4](ar, r.elem, n)
	}
	out := make([]interface{}, n)
	for i := range out {
		if out[i], err = ar.readElement(r.elem); err != nil {
			return nil, fmt.Errorf("failed to read element %d: %w", i, err)
		}
	}
	return out, nil
}

func readTypedSlice[T any](ar *AssetReader, elem TypeReader, n int) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := ar.readElement(elem)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %d: %w", i, err)
		}
		if v == nil {
			continue
		}
		tv, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("element %d type mismatch: expected %T, actual %T", i, out[i], v)
		}
		out[i] = tv
	}
	return out, nil
}

/** @brief Reads a key/value map. Keys of non-comparable runtime types
 * fail the load. */
type dictionaryReader struct {
	keyName, valName string
	key, val         TypeReader
}

func newDictionaryReader(t TypeName) (TypeReader, error) {
	keyName, err := genericArg(t, 0, "DictionaryReader")
	if err != nil {
		return nil, err
	}
	valName, err := genericArg(t, 1, "DictionaryReader")
	if err != nil {
		return nil, err
	}
	return &dictionaryReader{keyName: keyName, valName: valName}, nil
}

func (r *dictionaryReader) TargetType() string { return "Dictionary" }
func (r *dictionaryReader) IsValueType() bool  { return false }

func (r *dictionaryReader) Initialize(res Resolver) error {
	key, err := res.Resolve(r.keyName)
	if err != nil {
		return err
	}
	val, err := res.Resolve(r.valName)
	if err != nil {
		return err
	}
	r.key, r.val = key, val
	return nil
}

func (r *dictionaryReader) Read(ar *AssetReader, _ interface{}) (interface{}, error) {
	count, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := checkElementCount(ar, count, "Dictionary"); err != nil {
		return nil, err
	}
	out := make(map[interface{}]interface{}, count)
	for i := 0; i < int(count); i++ {
		k, err := ar.readElement(r.key)
		if err != nil {
			return nil, fmt.Errorf("failed to read key %d: %w", i, err)
		}
		if k != nil && !reflect.TypeOf(k).Comparable() {
			return nil, fmt.Errorf("dictionary key %d has unhashable type %T", i, k)
		}
		v, err := ar.readElement(r.val)
		if err != nil {
			return nil, fmt.Errorf("failed to read value %d: %w", i, err)
		}
		out[k] = v
	}
	return out, nil
}

/** @brief Reads a relative asset name and loads the referenced asset
 * through the owning manager. The generic argument names the target
 * asset's reader; it is carried for diagnostics only. */
type externalReferenceReader struct {
	targetName string
}

func newExternalReferenceReader(t TypeName) (TypeReader, error) {
	name := ""
	if len(t.GenericArgs) > 0 {
		name = t.GenericArgs[0].String()
	}
	return &externalReferenceReader{targetName: name}, nil
}

func (r *externalReferenceReader) TargetType() string { return "ExternalReference" }
func (r *externalReferenceReader) IsValueType() bool  { return false }

func (r *externalReferenceReader) Read(ar *AssetReader, _ interface{}) (interface{}, error) {
	v, err := ReadExternalReference[interface{}](ar)
	if err != nil && r.targetName != "" {
		return nil, fmt.Errorf("external reference to '%s': %w", r.targetName, err)
	}
	return v, err
}
