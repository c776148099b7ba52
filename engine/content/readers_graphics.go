package content

import (
	"bytes"
	"context"
	"fmt"

	"github.com/emberworks/ember/engine/graphics"
	"github.com/emberworks/ember/engine/imaging"
	"github.com/emberworks/ember/engine/math"
)

// SurfaceFormat tags the pixel layout of a compiled texture's mip
// blobs. The embedded sentinel marks a blob that is a whole encoded
// image stream (PNG/JPEG/...) routed through the imaging decoder.
type SurfaceFormat int32

const (
	SurfaceFormatColor SurfaceFormat = iota
	SurfaceFormatBgra
	SurfaceFormatGray
	SurfaceFormatGray16
	SurfaceFormatRgba64
	SurfaceFormatSingle
	SurfaceFormatVector4

	SurfaceFormatEmbeddedImage SurfaceFormat = -1
)

func (sf SurfaceFormat) pixelFormat() (imaging.PixelFormat, error) {
	switch sf {
	case SurfaceFormatColor:
		return imaging.PixelFormatRGBA8, nil
	case SurfaceFormatBgra:
		return imaging.PixelFormatBGRA8, nil
	case SurfaceFormatGray:
		return imaging.PixelFormatGray8, nil
	case SurfaceFormatGray16:
		return imaging.PixelFormatGray16, nil
	case SurfaceFormatRgba64:
		return imaging.PixelFormatRGBA16, nil
	case SurfaceFormatSingle:
		return imaging.PixelFormatR32F, nil
	case SurfaceFormatVector4:
		return imaging.PixelFormatRGBA32F, nil
	}
	return imaging.PixelFormatUnknown, fmt.Errorf("unknown surface format %d", sf)
}

func newTexture2DReader() TypeReader {
	return &funcReader{target: "Texture2D", read: readTexture2D}
}

// Texture payload: surface format int32, width int32, height int32,
// mip count uint32, then per mip a uint32 byte count and the blob.
func readTexture2D(ar *AssetReader, _ interface{}) (interface{}, error) {
	sfRaw, err := ar.cursor.ReadInt32()
	if err != nil {
		return nil, err
	}
	sf := SurfaceFormat(sfRaw)
	width, err := ar.cursor.ReadInt32()
	if err != nil {
		return nil, err
	}
	height, err := ar.cursor.ReadInt32()
	if err != nil {
		return nil, err
	}
	mipCount, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	if mipCount == 0 {
		return nil, fmt.Errorf("texture must carry at least one mip level")
	}
	mips := make([][]byte, mipCount)
	for i := range mips {
		size, err := ar.cursor.ReadUint32()
		if err != nil {
			return nil, err
		}
		if mips[i], err = ar.cursor.ReadBytes(int(size)); err != nil {
			return nil, fmt.Errorf("failed to read mip %d: %w", i, err)
		}
	}

	if sf == SurfaceFormatEmbeddedImage {
		if mipCount != 1 {
			return nil, fmt.Errorf("embedded-image texture must carry exactly one mip, got %d", mipCount)
		}
		return buildEmbeddedTexture(ar, int(width), int(height), mips[0])
	}

	format, err := sf.pixelFormat()
	if err != nil {
		return nil, err
	}
	tex, err := graphics.NewTexture2D(ar.Device(), ar.AssetName(), int(width), int(height), int(mipCount), format)
	if err != nil {
		return nil, err
	}
	for i, blob := range mips {
		if err := tex.UploadMip(i, blob); err != nil {
			return nil, err
		}
	}
	return tex, nil
}

// buildEmbeddedTexture decodes an encoded image blob and uploads the
// first frame converted to the canonical RGBA8 layout.
func buildEmbeddedTexture(ar *AssetReader, width, height int, blob []byte) (interface{}, error) {
	fc, err := imaging.Decode(context.Background(), bytes.NewReader(blob), imaging.PixelFormatRGBA8,
		&imaging.DecodeOptions{FrameLimit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded texture image: %w", err)
	}
	buf := fc.Frames[0].Buffer
	if width > 0 && height > 0 && (buf.Width != width || buf.Height != height) {
		return nil, fmt.Errorf("embedded image is %dx%d, stream declares %dx%d",
			buf.Width, buf.Height, width, height)
	}
	tex, err := graphics.NewTexture2D(ar.Device(), ar.AssetName(), buf.Width, buf.Height, 1, imaging.PixelFormatRGBA8)
	if err != nil {
		return nil, err
	}
	if err := tex.UploadMip(0, buf.Pix); err != nil {
		return nil, err
	}
	return tex, nil
}

func newVertexBufferReader() TypeReader {
	return &funcReader{target: "VertexBuffer", read: readVertexBuffer}
}

// Vertex buffer payload: declaration (stride int32, element count
// uint32, per element four int32 fields), vertex count uint32, then
// vertexCount*stride raw bytes.
func readVertexBuffer(ar *AssetReader, _ interface{}) (interface{}, error) {
	stride, err := ar.cursor.ReadInt32()
	if err != nil {
		return nil, err
	}
	if stride <= 0 {
		return nil, fmt.Errorf("vertex stride must be positive, got %d", stride)
	}
	elemCount, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	decl := graphics.VertexDeclaration{Stride: stride, Elements: make([]graphics.VertexElement, elemCount)}
	for i := range decl.Elements {
		var fields [4]int32
		for j := range fields {
			if fields[j], err = ar.cursor.ReadInt32(); err != nil {
				return nil, fmt.Errorf("failed to read vertex element %d: %w", i, err)
			}
		}
		decl.Elements[i] = graphics.VertexElement{
			Offset:     fields[0],
			Format:     graphics.VertexElementFormat(fields[1]),
			Usage:      graphics.VertexElementUsage(fields[2]),
			UsageIndex: fields[3],
		}
	}
	vertexCount, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	data, err := ar.cursor.ReadBytes(int(vertexCount) * int(stride))
	if err != nil {
		return nil, err
	}
	return graphics.NewVertexBuffer(ar.Device(), decl, int(vertexCount), data)
}

func newIndexBufferReader() TypeReader {
	return &funcReader{target: "IndexBuffer", read: readIndexBuffer}
}

// Index buffer payload: sixteen-bit flag, uint32 byte count, raw index
// bytes.
func readIndexBuffer(ar *AssetReader, _ interface{}) (interface{}, error) {
	sixteenBit, err := ar.cursor.ReadBool()
	if err != nil {
		return nil, err
	}
	size, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	data, err := ar.cursor.ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	elemSize := graphics.IndexElementSize32
	indexBytes := 4
	if sixteenBit {
		elemSize = graphics.IndexElementSize16
		indexBytes = 2
	}
	if int(size)%indexBytes != 0 {
		return nil, fmt.Errorf("index data size %d is not a multiple of the %d-byte element size", size, indexBytes)
	}
	return graphics.NewIndexBuffer(ar.Device(), elemSize, int(size)/indexBytes, data)
}

func newEffectReader() TypeReader {
	return &funcReader{target: "Effect", read: readEffect}
}

func readEffect(ar *AssetReader, _ interface{}) (interface{}, error) {
	size, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	bytecode, err := ar.cursor.ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	return graphics.NewEffect(ar.Device(), bytecode)
}

func newModelReader() TypeReader {
	return &funcReader{target: "Model", read: readModel}
}

// Model payload: bone table (names + transforms, then hierarchy links
// as raw 1-based indices, 0 = none), mesh list whose parts hold
// shared-resource references to buffers and effects, root bone index,
// opaque tag object.
func readModel(ar *AssetReader, _ interface{}) (interface{}, error) {
	boneCount, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	model := &graphics.Model{Bones: make([]*graphics.ModelBone, boneCount)}
	for i := range model.Bones {
		name, err := ar.cursor.ReadString()
		if err != nil {
			return nil, fmt.Errorf("failed to read bone %d: %w", i, err)
		}
		transform, err := ar.cursor.ReadMatrix()
		if err != nil {
			return nil, fmt.Errorf("failed to read bone %d transform: %w", i, err)
		}
		model.Bones[i] = &graphics.ModelBone{Index: i, Name: name, Transform: transform}
	}

	boneAt := func(idx uint32, what string) (*graphics.ModelBone, error) {
		if idx == 0 {
			return nil, nil
		}
		if int(idx) > len(model.Bones) {
			return nil, fmt.Errorf("%s bone index %d out of range (%d bones)", what, idx, len(model.Bones))
		}
		return model.Bones[idx-1], nil
	}

	for i, bone := range model.Bones {
		parentIdx, err := ar.cursor.ReadUint32()
		if err != nil {
			return nil, err
		}
		if bone.Parent, err = boneAt(parentIdx, "parent"); err != nil {
			return nil, err
		}
		childCount, err := ar.cursor.ReadUint32()
		if err != nil {
			return nil, err
		}
		bone.Children = make([]*graphics.ModelBone, childCount)
		for j := range bone.Children {
			childIdx, err := ar.cursor.ReadUint32()
			if err != nil {
				return nil, err
			}
			if bone.Children[j], err = boneAt(childIdx, "child"); err != nil {
				return nil, err
			}
			if bone.Children[j] == nil {
				return nil, fmt.Errorf("bone %d child %d references no bone", i, j)
			}
		}
	}

	meshCount, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	model.Meshes = make([]*graphics.ModelMesh, meshCount)
	for i := range model.Meshes {
		mesh := &graphics.ModelMesh{}
		if mesh.Name, err = ar.cursor.ReadString(); err != nil {
			return nil, fmt.Errorf("failed to read mesh %d: %w", i, err)
		}
		parentIdx, err := ar.cursor.ReadUint32()
		if err != nil {
			return nil, err
		}
		if mesh.ParentBone, err = boneAt(parentIdx, "mesh parent"); err != nil {
			return nil, err
		}
		center, err := ar.cursor.ReadVector3()
		if err != nil {
			return nil, err
		}
		radius, err := ar.cursor.ReadFloat32()
		if err != nil {
			return nil, err
		}
		mesh.Bounds = math.Sphere{Center: center, Radius: radius}
		if mesh.Tag, err = ar.ReadObject(nil); err != nil {
			return nil, err
		}

		partCount, err := ar.cursor.ReadUint32()
		if err != nil {
			return nil, err
		}
		mesh.Parts = make([]*graphics.ModelMeshPart, partCount)
		for j := range mesh.Parts {
			part := &graphics.ModelMeshPart{}
			var fields [4]int32
			for k := range fields {
				if fields[k], err = ar.cursor.ReadInt32(); err != nil {
					return nil, fmt.Errorf("failed to read mesh %d part %d: %w", i, j, err)
				}
			}
			part.VertexOffset, part.NumVertices = fields[0], fields[1]
			part.StartIndex, part.PrimitiveCount = fields[2], fields[3]
			if part.Tag, err = ar.ReadObject(nil); err != nil {
				return nil, err
			}
			// Buffers and effects are shared across parts; the values
			// land after the whole graph is read.
			if err := ReadShared(ar, func(vb *graphics.VertexBuffer) { part.VertexBuffer = vb }); err != nil {
				return nil, err
			}
			if err := ReadShared(ar, func(ib *graphics.IndexBuffer) { part.IndexBuffer = ib }); err != nil {
				return nil, err
			}
			if err := ReadShared(ar, func(fx *graphics.Effect) { part.Effect = fx }); err != nil {
				return nil, err
			}
			mesh.Parts[j] = part
		}
		model.Meshes[i] = mesh
	}

	rootIdx, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	if model.Root, err = boneAt(rootIdx, "root"); err != nil {
		return nil, err
	}
	if model.Tag, err = ar.ReadObject(nil); err != nil {
		return nil, err
	}
	return model, nil
}

func newSpriteFontReader() TypeReader {
	return &funcReader{target: "SpriteFont", read: readSpriteFont}
}

// Sprite font payload: texture object, glyph and cropping rectangle
// tables, covered character list, line spacing, spacing, kerning
// vectors, optional default character. The tables run parallel.
func readSpriteFont(ar *AssetReader, _ interface{}) (interface{}, error) {
	texture, err := ReadObjectAs[*graphics.Texture2D](ar)
	if err != nil {
		return nil, err
	}
	if texture == nil {
		return nil, fmt.Errorf("sprite font is missing its texture page")
	}
	font := &graphics.SpriteFont{Texture: texture}

	readRects := func(what string) ([]math.Rect, error) {
		count, err := ar.cursor.ReadUint32()
		if err != nil {
			return nil, err
		}
		out := make([]math.Rect, count)
		for i := range out {
			if out[i], err = ar.cursor.ReadRect(); err != nil {
				return nil, fmt.Errorf("failed to read %s %d: %w", what, i, err)
			}
		}
		return out, nil
	}
	if font.Glyphs, err = readRects("glyph"); err != nil {
		return nil, err
	}
	if font.Cropping, err = readRects("cropping"); err != nil {
		return nil, err
	}

	charCount, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	font.Characters = make([]rune, charCount)
	for i := range font.Characters {
		if font.Characters[i], err = ar.cursor.ReadChar(); err != nil {
			return nil, fmt.Errorf("failed to read character %d: %w", i, err)
		}
	}

	if font.LineSpacing, err = ar.cursor.ReadInt32(); err != nil {
		return nil, err
	}
	if font.Spacing, err = ar.cursor.ReadFloat32(); err != nil {
		return nil, err
	}

	kernCount, err := ar.cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	font.Kerning = make([]math.Vec3, kernCount)
	for i := range font.Kerning {
		if font.Kerning[i], err = ar.cursor.ReadVector3(); err != nil {
			return nil, fmt.Errorf("failed to read kerning %d: %w", i, err)
		}
	}

	hasDefault, err := ar.cursor.ReadBool()
	if err != nil {
		return nil, err
	}
	if hasDefault {
		def, err := ar.cursor.ReadChar()
		if err != nil {
			return nil, err
		}
		font.DefaultCharacter = &def
	}

	n := len(font.Glyphs)
	if len(font.Cropping) != n || len(font.Characters) != n || len(font.Kerning) != n {
		return nil, fmt.Errorf("sprite font tables disagree: %d glyphs, %d cropping, %d characters, %d kerning",
			n, len(font.Cropping), len(font.Characters), len(font.Kerning))
	}
	return font, nil
}
