package content

/**
 * @brief The closed built-in reader set. Primitive and math readers are
 * value types: collection contexts read them inline without the
 * reference-index indirection. All reader instances are stateless and
 * shared across concurrent loads.
 */

type funcReader struct {
	target    string
	valueType bool
	read      func(ar *AssetReader, existing interface{}) (interface{}, error)
}

func (r *funcReader) TargetType() string { return r.target }
func (r *funcReader) IsValueType() bool  { return r.valueType }
func (r *funcReader) Read(ar *AssetReader, existing interface{}) (interface{}, error) {
	return r.read(ar, existing)
}

func valueReader(target string, read func(ar *AssetReader, existing interface{}) (interface{}, error)) func() TypeReader {
	return func() TypeReader {
		return &funcReader{target: target, valueType: true, read: read}
	}
}

func registerBuiltinReaders(reg *TypeReaderRegistry) {
	reg.RegisterReader("Ember.Content.ByteReader", valueReader("Byte",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadUint8() }))
	reg.RegisterReader("Ember.Content.SByteReader", valueReader("SByte",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadInt8() }))
	reg.RegisterReader("Ember.Content.Int16Reader", valueReader("Int16",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadInt16() }))
	reg.RegisterReader("Ember.Content.UInt16Reader", valueReader("UInt16",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadUint16() }))
	reg.RegisterReader("Ember.Content.Int32Reader", valueReader("Int32",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadInt32() }))
	reg.RegisterReader("Ember.Content.UInt32Reader", valueReader("UInt32",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadUint32() }))
	reg.RegisterReader("Ember.Content.Int64Reader", valueReader("Int64",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadInt64() }))
	reg.RegisterReader("Ember.Content.UInt64Reader", valueReader("UInt64",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadUint64() }))
	reg.RegisterReader("Ember.Content.SingleReader", valueReader("Single",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadFloat32() }))
	reg.RegisterReader("Ember.Content.DoubleReader", valueReader("Double",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadFloat64() }))
	reg.RegisterReader("Ember.Content.BooleanReader", valueReader("Boolean",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadBool() }))
	reg.RegisterReader("Ember.Content.CharReader", valueReader("Char",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadChar() }))

	// Strings are reference types: a null string arrives as reference
	// index 0 and never reaches this reader.
	reg.RegisterReader("Ember.Content.StringReader", func() TypeReader {
		return &funcReader{target: "String", read: func(ar *AssetReader, _ interface{}) (interface{}, error) {
			return ar.cursor.ReadString()
		}}
	})

	reg.RegisterReader("Ember.Content.Vector2Reader", valueReader("Vector2",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadVector2() }))
	reg.RegisterReader("Ember.Content.Vector3Reader", valueReader("Vector3",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadVector3() }))
	reg.RegisterReader("Ember.Content.Vector4Reader", valueReader("Vector4",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadVector4() }))
	reg.RegisterReader("Ember.Content.QuaternionReader", valueReader("Quaternion",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadQuaternion() }))
	reg.RegisterReader("Ember.Content.MatrixReader", valueReader("Matrix",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadMatrix() }))
	reg.RegisterReader("Ember.Content.ColorReader", valueReader("Color",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadColor() }))
	reg.RegisterReader("Ember.Content.RectangleReader", valueReader("Rectangle",
		func(ar *AssetReader, _ interface{}) (interface{}, error) { return ar.cursor.ReadRect() }))

	reg.RegisterFactory("Ember.Content.EnumReader", newEnumReader)
	reg.RegisterFactory("Ember.Content.NullableReader", newNullableReader)
	reg.RegisterFactory("Ember.Content.ArrayReader", newArrayReader)
	reg.RegisterFactory("Ember.Content.ListReader", newListReader)
	reg.RegisterFactory("Ember.Content.DictionaryReader", newDictionaryReader)
	reg.RegisterFactory("Ember.Content.ExternalReferenceReader", newExternalReferenceReader)

	reg.RegisterReader("Ember.Content.Texture2DReader", newTexture2DReader)
	reg.RegisterReader("Ember.Content.VertexBufferReader", newVertexBufferReader)
	reg.RegisterReader("Ember.Content.IndexBufferReader", newIndexBufferReader)
	reg.RegisterReader("Ember.Content.EffectReader", newEffectReader)
	reg.RegisterReader("Ember.Content.ModelReader", newModelReader)
	reg.RegisterReader("Ember.Content.SpriteFontReader", newSpriteFontReader)
}

// readElement reads one collection element, inline for value types and
// through the reference index for reference types.
func (ar *AssetReader) readElement(elem TypeReader) (interface{}, error) {
	if elem.IsValueType() {
		return ar.ReadRawObject(elem, nil)
	}
	return ar.ReadObject(nil)
}
