package gridsim

import (
	"image"
	"image/color"
	"math"

	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// Camera describes the shared pinhole model of all sensors.
type Camera struct {
	Width, Height int
	// HFOV is the horizontal field of view in degrees.
	HFOV float64
	ZFar float64
}

func (c Camera) focal() float64 {
	return float64(c.Width) / 2 / math.Tan(c.HFOV*math.Pi/180/2)
}

// renderer raycasts a World column by column.
type renderer struct {
	world      *World
	cam        Camera
	wallHeight float64
	lights     []sim.Light
}

type hit struct {
	depth float64
	label uint32
	point geom.Vec3
}

// render produces the frames of the requested kinds seen from pose.
func (rd *renderer) render(pose geom.Pose, kinds map[sim.SensorKind]bool) sim.Frames {
	w, h := rd.cam.Width, rd.cam.Height
	var frames sim.Frames
	if kinds[sim.SensorColor] {
		frames.Color = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	if kinds[sim.SensorDepth] {
		frames.Depth = &sim.DepthFrame{Width: w, Height: h, Meters: make([]float32, w*h)}
	}
	if kinds[sim.SensorSemantic] {
		frames.Semantic = &sim.SemanticFrame{Width: w, Height: h, Labels: make([]uint32, w*h)}
	}
	if frames.Color == nil && frames.Depth == nil && frames.Semantic == nil {
		return frames
	}

	f := rd.cam.focal()
	cx, cy := float64(w-1)/2, float64(h-1)/2
	q := geom.Normalize(pose.Rotation)
	eye := pose.Position
	ceiling := math.Max(rd.wallHeight, eye.Y+0.1)
	lights := rd.placeLights(pose)

	for x := 0; x < w; x++ {
		u := (float64(x) - cx) / f
		// Forward component 1, so the ray parameter is camera z-depth.
		dir := geom.Rotate(q, geom.Vec3{X: u, Z: -1})
		wallT, wallLabel := rd.cast(eye, dir)

		for y := 0; y < h; y++ {
			v := (cy - float64(y)) / f
			ht := hit{depth: wallT, label: wallLabel}
			switch {
			case v < 0 && eye.Y/(-v) < wallT:
				ht = hit{depth: eye.Y / (-v), label: LabelFloor}
			case v > 0 && (ceiling-eye.Y)/v < wallT:
				ht = hit{depth: (ceiling - eye.Y) / v, label: LabelCeiling}
			}
			if math.IsInf(ht.depth, 1) || ht.depth > rd.cam.ZFar {
				ht = hit{}
			} else {
				ht.point = geom.Vec3{X: eye.X + dir.X*ht.depth, Y: eye.Y + v*ht.depth, Z: eye.Z + dir.Z*ht.depth}
			}

			i := y*w + x
			if frames.Depth != nil {
				frames.Depth.Meters[i] = float32(ht.depth)
			}
			if frames.Semantic != nil {
				frames.Semantic.Labels[i] = ht.label
			}
			if frames.Color != nil {
				frames.Color.SetRGBA(x, y, rd.shade(ht, lights))
			}
		}
	}
	return frames
}

// cast walks the grid from eye along dir on the XZ plane and returns the
// ray parameter and label of the first non-floor cell, or +Inf.
func (rd *renderer) cast(eye, dir geom.Vec3) (float64, uint32) {
	w := rd.world
	s := w.CellSize
	c, r := w.Cell(eye)

	stepC, tMaxX, tDeltaX := axis(eye.X, dir.X, c, s)
	stepR, tMaxZ, tDeltaZ := axis(eye.Z, dir.Z, r, s)

	limit := rd.cam.ZFar
	for {
		var t float64
		if tMaxX < tMaxZ {
			t = tMaxX
			c += stepC
			tMaxX += tDeltaX
		} else {
			t = tMaxZ
			r += stepR
			tMaxZ += tDeltaZ
		}
		if math.IsInf(t, 1) || t > limit {
			return math.Inf(1), 0
		}
		if c < -1 || r < -1 || c > w.Cols || r > w.Rows {
			return math.Inf(1), 0
		}
		if !w.Free(c, r) {
			return t, w.Label(c, r)
		}
	}
}

func axis(origin, d float64, cell int, s float64) (step int, tMax, tDelta float64) {
	switch {
	case d > 0:
		return 1, ((float64(cell)+1)*s - origin) / d, s / d
	case d < 0:
		return -1, (float64(cell)*s - origin) / d, -s / d
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}

type placedLight struct {
	pos         geom.Vec3
	directional bool
	color       [3]float64
}

// placeLights moves camera-relative lights into the world frame.
func (rd *renderer) placeLights(pose geom.Pose) []placedLight {
	out := make([]placedLight, 0, len(rd.lights))
	for _, l := range rd.lights {
		v := geom.Vec3{X: l.Vector[0], Y: l.Vector[1], Z: l.Vector[2]}
		pl := placedLight{directional: l.Vector[3] == 0, color: l.Color}
		if l.Model == sim.LightCamera && !pl.directional {
			v = pose.Position.Add(geom.Rotate(pose.Rotation, v))
		}
		pl.pos = v
		out = append(out, pl)
	}
	return out
}

func (rd *renderer) shade(ht hit, lights []placedLight) color.RGBA {
	if ht.label == 0 {
		return color.RGBA{A: 255}
	}
	base := palette(ht.label)

	var gain [3]float64
	if len(rd.lights) == 0 {
		g := 1 / (1 + 0.05*ht.depth)
		gain = [3]float64{g, g, g}
	} else {
		gain = [3]float64{0.15, 0.15, 0.15}
		for _, l := range lights {
			k := 0.1
			if !l.directional {
				d := ht.point.Dist(l.pos)
				k = 1 / (1 + d*d)
			}
			for ch := range gain {
				gain[ch] += l.color[ch] * k
			}
		}
	}

	var out [3]uint8
	for ch := range out {
		out[ch] = uint8(math.Min(255, base[ch]*math.Min(gain[ch], 1)))
	}
	return color.RGBA{R: out[0], G: out[1], B: out[2], A: 255}
}

// palette returns a stable base color for a label.
func palette(label uint32) [3]float64 {
	switch label {
	case LabelWall:
		return [3]float64{200, 200, 190}
	case LabelFloor:
		return [3]float64{140, 105, 70}
	case LabelCeiling:
		return [3]float64{235, 235, 235}
	}
	hue := float64(label*47%360) / 60
	x := 1 - math.Abs(math.Mod(hue, 2)-1)
	var r, g, b float64
	switch int(hue) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	return [3]float64{60 + 180*r, 60 + 180*g, 60 + 180*b}
}
