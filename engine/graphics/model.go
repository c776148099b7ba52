package graphics

import (
	"github.com/emberworks/ember/engine/math"
)

/** @brief One bone in a model's skeleton hierarchy. */
type ModelBone struct {
	Index     int
	Name      string
	Transform math.Mat4
	Parent    *ModelBone
	Children  []*ModelBone
}

/** @brief A contiguous run of primitives sharing one material. The
 * buffer and effect references resolve through the shared-resource
 * table, so a part may alias resources with other parts. */
type ModelMeshPart struct {
	VertexOffset   int32
	NumVertices    int32
	StartIndex     int32
	PrimitiveCount int32
	Tag            interface{}

	VertexBuffer *VertexBuffer
	IndexBuffer  *IndexBuffer
	Effect       *Effect
}

/** @brief A drawable mesh attached to one bone. */
type ModelMesh struct {
	Name       string
	ParentBone *ModelBone
	Bounds     math.Sphere
	Parts      []*ModelMeshPart
	Tag        interface{}
}

/** @brief A complete model asset: skeleton plus meshes. */
type Model struct {
	Bones  []*ModelBone
	Meshes []*ModelMesh
	Root   *ModelBone
	Tag    interface{}
}
