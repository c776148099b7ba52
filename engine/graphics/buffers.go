package graphics

import "fmt"

type VertexElementFormat int32

const (
	VertexElementFormatSingle VertexElementFormat = iota
	VertexElementFormatVector2
	VertexElementFormatVector3
	VertexElementFormatVector4
	VertexElementFormatColor
	VertexElementFormatByte4
	VertexElementFormatShort2
	VertexElementFormatShort4
)

// Size returns the byte size of one element of the format.
func (f VertexElementFormat) Size() int32 {
	switch f {
	case VertexElementFormatSingle:
		return 4
	case VertexElementFormatVector2:
		return 8
	case VertexElementFormatVector3:
		return 12
	case VertexElementFormatVector4:
		return 16
	case VertexElementFormatColor, VertexElementFormatByte4, VertexElementFormatShort2:
		return 4
	case VertexElementFormatShort4:
		return 8
	}
	return 0
}

type VertexElementUsage int32

const (
	VertexElementUsagePosition VertexElementUsage = iota
	VertexElementUsageColor
	VertexElementUsageTexcoord
	VertexElementUsageNormal
	VertexElementUsageBinormal
	VertexElementUsageTangent
	VertexElementUsageBlendIndices
	VertexElementUsageBlendWeight
)

/** @brief One attribute of a vertex layout. */
type VertexElement struct {
	Offset     int32
	Format     VertexElementFormat
	Usage      VertexElementUsage
	UsageIndex int32
}

/** @brief The layout of one vertex in a vertex buffer. */
type VertexDeclaration struct {
	Stride   int32
	Elements []VertexElement
}

/** @brief A vertex buffer resource with its layout. */
type VertexBuffer struct {
	device Device
	handle Handle

	Declaration VertexDeclaration
	VertexCount int

	destroyed bool
}

func NewVertexBuffer(device Device, decl VertexDeclaration, vertexCount int, data []byte) (*VertexBuffer, error) {
	if device == nil {
		return nil, fmt.Errorf("vertex buffer requires a graphics device")
	}
	h, err := device.CreateVertexBuffer(data)
	if err != nil {
		return nil, err
	}
	return &VertexBuffer{device: device, handle: h, Declaration: decl, VertexCount: vertexCount}, nil
}

func (b *VertexBuffer) Handle() Handle {
	return b.handle
}

func (b *VertexBuffer) Destroy() error {
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	return b.device.DestroyResource(b.handle)
}

type IndexElementSize int32

const (
	IndexElementSize16 IndexElementSize = iota
	IndexElementSize32
)

/** @brief An index buffer resource. */
type IndexBuffer struct {
	device Device
	handle Handle

	ElementSize IndexElementSize
	IndexCount  int

	destroyed bool
}

func NewIndexBuffer(device Device, size IndexElementSize, indexCount int, data []byte) (*IndexBuffer, error) {
	if device == nil {
		return nil, fmt.Errorf("index buffer requires a graphics device")
	}
	h, err := device.CreateIndexBuffer(data)
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{device: device, handle: h, ElementSize: size, IndexCount: indexCount}, nil
}

func (b *IndexBuffer) Handle() Handle {
	return b.handle
}

func (b *IndexBuffer) Destroy() error {
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	return b.device.DestroyResource(b.handle)
}
