package game

import "math"

// Vec3 is a point or direction in arena space. Y is the vertical axis.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale multiplies every component by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Mul multiplies v and o component-wise.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

// Length returns the euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Array returns v as [x, y, z].
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Vec3FromArray builds a Vec3 from [x, y, z].
func Vec3FromArray(a [3]float64) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Quat is a rotation expressed as a unit quaternion.
type Quat struct {
	X float64
	Y float64
	Z float64
	W float64
}

// IdentityQuat is the rotation that leaves every vector unchanged.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// YawQuat returns a rotation of deg degrees around the vertical axis.
func YawQuat(deg float64) Quat {
	half := deg * math.Pi / 360
	return Quat{Y: math.Sin(half), W: math.Cos(half)}
}

// Array returns q in [x, y, z, w] order.
func (q Quat) Array() [4]float64 {
	return [4]float64{q.X, q.Y, q.Z, q.W}
}

// QuatFromArray builds a Quat from [x, y, z, w].
func QuatFromArray(a [4]float64) Quat {
	return Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

// Pose couples a position with a rotation.
type Pose struct {
	Position Vec3
	Rotation Quat
}

// Bounds is an axis aligned box described by its centre and half sizes.
type Bounds struct {
	Center  Vec3
	Extents Vec3
}

// Min returns the lowest corner of the box.
func (b Bounds) Min() Vec3 {
	return b.Center.Sub(b.Extents)
}

// Max returns the highest corner of the box.
func (b Bounds) Max() Vec3 {
	return b.Center.Add(b.Extents)
}

// Size returns the full dimensions of the box.
func (b Bounds) Size() Vec3 {
	return b.Extents.Scale(2)
}

// Contains reports whether p lies inside the box, faces included.
func (b Bounds) Contains(p Vec3) bool {
	const eps = 1e-9
	lo, hi := b.Min(), b.Max()
	return p.X >= lo.X-eps && p.X <= hi.X+eps &&
		p.Y >= lo.Y-eps && p.Y <= hi.Y+eps &&
		p.Z >= lo.Z-eps && p.Z <= hi.Z+eps
}

// Intersects reports whether two boxes overlap with a non empty volume on the
// horizontal plane and touch vertically.
func (b Bounds) Intersects(o Bounds) bool {
	bl, bh := b.Min(), b.Max()
	ol, oh := o.Min(), o.Max()
	return bl.X < oh.X && bh.X > ol.X &&
		bl.Z < oh.Z && bh.Z > ol.Z &&
		bl.Y <= oh.Y && bh.Y >= ol.Y
}
