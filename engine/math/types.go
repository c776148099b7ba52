package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

/** @brief a 4x4 matrix, typically used to represent object transformations.
 * Elements are stored row-major: Data[0..3] is the first row (M11..M14). */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/** @brief An RGBA colour with 8 bits per channel. */
type Color struct {
	R, G, B, A uint8
}

/** @brief An axis-aligned integer rectangle. */
type Rect struct {
	X, Y, Width, Height int32
}

/**
 * @brief Represents the extents of a 3d object.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
}

/**
 * @brief A bounding sphere, used for coarse mesh bounds.
 */
type Sphere struct {
	Center Vec3
	Radius float32
}
