package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestTransform_Identity(t *testing.T) {
	p := Pose{Position: Vec3{1, 2, 3}, Rotation: Identity}
	m := p.Transform()

	want := Mat4{
		1, 0, 0, 1,
		0, 1, 0, 2,
		0, 0, 1, 3,
		0, 0, 0, 1,
	}
	for i := range want {
		if !near(m[i], want[i]) {
			t.Fatalf("Transform()[%d] = %v, want %v (full %v)", i, m[i], want[i], m)
		}
	}
}

func TestTransform_Yaw90(t *testing.T) {
	p := Pose{Rotation: YawRotation(math.Pi / 2)}
	m := p.Transform()

	// +X rotates onto -Z when turning left by 90 degrees about +Y.
	if !near(m.At(0, 0), 0) || !near(m.At(2, 0), -1) {
		t.Errorf("first column = (%v, %v, %v), want (0, 0, -1)", m.At(0, 0), m.At(1, 0), m.At(2, 0))
	}
	if !near(m.At(1, 1), 1) {
		t.Errorf("up axis changed: %v", m.At(1, 1))
	}
	if !near(m.At(3, 3), 1) {
		t.Errorf("homogeneous corner = %v, want 1", m.At(3, 3))
	}
}

func TestYaw_RoundTrip(t *testing.T) {
	for _, deg := range []float64{0, 10, 45, 90, 135, 179, -30, -120} {
		rad := deg * math.Pi / 180
		got := Yaw(YawRotation(rad))
		if !near(got, rad) {
			t.Errorf("Yaw(YawRotation(%v deg)) = %v, want %v", deg, got, rad)
		}
	}
}

func TestForward(t *testing.T) {
	p := Pose{Rotation: Identity}
	f := p.Forward()
	if !near(f.X, 0) || !near(f.Y, 0) || !near(f.Z, -1) {
		t.Errorf("Forward() = %+v, want (0, 0, -1)", f)
	}
}

func TestNormalize_Zero(t *testing.T) {
	if got := Normalize(quat.Number{}); got != Identity {
		t.Errorf("Normalize(0) = %v, want identity", got)
	}
}

func TestIntrinsics(t *testing.T) {
	k := Intrinsics(640, 480, 90)
	if !near(k.At(0, 0), 320) || !near(k.At(1, 1), 320) {
		t.Errorf("focal = (%v, %v), want 320", k.At(0, 0), k.At(1, 1))
	}
	if !near(k.At(0, 2), 319.5) || !near(k.At(1, 2), 239.5) {
		t.Errorf("principal point = (%v, %v)", k.At(0, 2), k.At(1, 2))
	}
}

func TestVec3_HasNaN(t *testing.T) {
	if !NaN3().HasNaN() {
		t.Error("NaN3 should report NaN")
	}
	if (Vec3{1, 2, 3}).HasNaN() {
		t.Error("finite vector reported NaN")
	}
}
