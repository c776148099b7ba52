package graphics

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/emberworks/ember/engine/core"
	"github.com/emberworks/ember/engine/imaging"
)

const InvalidID uint32 = 0xFFFFFFFF

type ResourceKind uint8

const (
	ResourceKindTexture ResourceKind = iota
	ResourceKindVertexBuffer
	ResourceKindIndexBuffer
	ResourceKindEffect
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindTexture:
		return "texture"
	case ResourceKindVertexBuffer:
		return "vertex_buffer"
	case ResourceKindIndexBuffer:
		return "index_buffer"
	case ResourceKindEffect:
		return "effect"
	}
	return "unknown"
}

/** @brief An opaque handle to a device-side resource. */
type Handle struct {
	ID   uint32
	Kind ResourceKind
}

/**
 * @brief The narrow construction/upload interface the content pipeline
 * populates resources through. The real renderer backend sits behind
 * this; MemoryDevice is the in-memory reference implementation.
 */
type Device interface {
	CreateTexture(name string, width, height, mipCount int, format imaging.PixelFormat) (Handle, error)
	UploadTexturePixels(h Handle, mipLevel int, pixels []byte) error
	CreateVertexBuffer(data []byte) (Handle, error)
	CreateIndexBuffer(data []byte) (Handle, error)
	CreateEffect(bytecode []byte) (Handle, error)
	DestroyResource(h Handle) error
}

type deviceResource struct {
	kind  ResourceKind
	name  string
	debug string // uuid for log correlation
	data  [][]byte
}

/** @brief A Device keeping every upload in host memory. Used by the
 * testbed and as the test sink; no GPU is involved. */
type MemoryDevice struct {
	mu        sync.Mutex
	resources map[uint32]*deviceResource

	CreatedCount   int
	DestroyedCount int
}

func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{
		resources: make(map[uint32]*deviceResource),
	}
}

func (d *MemoryDevice) create(kind ResourceKind, name string, slots int) Handle {
	res := &deviceResource{
		kind:  kind,
		name:  name,
		debug: uuid.New().String(),
		data:  make([][]byte, slots),
	}
	d.mu.Lock()
	id := core.IdentifierAquireNewID(res)
	d.resources[id] = res
	d.CreatedCount++
	d.mu.Unlock()
	core.LogDebug("device created %s '%s' (id=%d uuid=%s)", kind, name, id, res.debug)
	return Handle{ID: id, Kind: kind}
}

func (d *MemoryDevice) CreateTexture(name string, width, height, mipCount int, format imaging.PixelFormat) (Handle, error) {
	if width <= 0 || height <= 0 {
		return Handle{}, fmt.Errorf("texture '%s' dimensions must be positive, got %dx%d", name, width, height)
	}
	if mipCount < 1 {
		return Handle{}, fmt.Errorf("texture '%s' must have at least one mip level", name)
	}
	return d.create(ResourceKindTexture, name, mipCount), nil
}

func (d *MemoryDevice) UploadTexturePixels(h Handle, mipLevel int, pixels []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, ok := d.resources[h.ID]
	if !ok || res.kind != ResourceKindTexture {
		return fmt.Errorf("invalid texture handle %d", h.ID)
	}
	if mipLevel < 0 || mipLevel >= len(res.data) {
		return fmt.Errorf("mip level %d out of range for texture '%s' (%d levels)", mipLevel, res.name, len(res.data))
	}
	buf := make([]byte, len(pixels))
	copy(buf, pixels)
	res.data[mipLevel] = buf
	return nil
}

func (d *MemoryDevice) CreateVertexBuffer(data []byte) (Handle, error) {
	h := d.create(ResourceKindVertexBuffer, "vertex_buffer", 1)
	return h, d.storeData(h, data)
}

func (d *MemoryDevice) CreateIndexBuffer(data []byte) (Handle, error) {
	h := d.create(ResourceKindIndexBuffer, "index_buffer", 1)
	return h, d.storeData(h, data)
}

func (d *MemoryDevice) CreateEffect(bytecode []byte) (Handle, error) {
	if len(bytecode) == 0 {
		return Handle{}, fmt.Errorf("effect bytecode must not be empty")
	}
	h := d.create(ResourceKindEffect, "effect", 1)
	return h, d.storeData(h, bytecode)
}

func (d *MemoryDevice) storeData(h Handle, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, ok := d.resources[h.ID]
	if !ok {
		return fmt.Errorf("invalid %s handle %d", h.Kind, h.ID)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	res.data[0] = buf
	return nil
}

func (d *MemoryDevice) DestroyResource(h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, ok := d.resources[h.ID]
	if !ok {
		return fmt.Errorf("destroy of unknown %s handle %d", h.Kind, h.ID)
	}
	delete(d.resources, h.ID)
	d.DestroyedCount++
	if err := core.IdentifierReleaseID(h.ID); err != nil {
		return err
	}
	core.LogDebug("device destroyed %s '%s' (id=%d)", res.kind, res.name, h.ID)
	return nil
}

// ResourceData returns the bytes uploaded to a resource slot. Test and
// testbed introspection only.
func (d *MemoryDevice) ResourceData(h Handle, slot int) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, ok := d.resources[h.ID]
	if !ok || slot < 0 || slot >= len(res.data) {
		return nil, false
	}
	return res.data[slot], true
}

// ResourceCount returns the number of live device resources.
func (d *MemoryDevice) ResourceCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.resources)
}
