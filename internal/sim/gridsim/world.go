package gridsim

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"

	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
)

// Semantic labels of the structural surfaces. Obstacles get their own
// labels from LabelOf.
const (
	LabelWall    uint32 = 1
	LabelFloor   uint32 = 2
	LabelCeiling uint32 = 3
)

// World is a floor plan of square cells on the XZ plane. Cell (c, r) spans
// x in [c*s, (c+1)*s) and z in [r*s, (r+1)*s). The floor is at y = 0.
type World struct {
	Cols, Rows int
	CellSize   float64
	cells      []byte
}

// LabelOf returns the semantic label of a map cell.
//
//	'#'        wall
//	'.' ' '    floor
//	'A'..'Z'   obstacle, labels 10..35
//	'0'..'9'   obstacle, labels 40..49
func LabelOf(b byte) (uint32, bool) {
	switch {
	case b == '#':
		return LabelWall, true
	case b == '.' || b == ' ':
		return LabelFloor, true
	case b >= 'A' && b <= 'Z':
		return 10 + uint32(b-'A'), true
	case b >= '0' && b <= '9':
		return 40 + uint32(b-'0'), true
	}
	return 0, false
}

// ParseWorld reads an ASCII floor plan, one row per line. Short rows are
// padded with floor and the plan is closed with walls on every side.
func ParseWorld(r io.Reader, cellSize float64) (*World, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %v", cellSize)
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, ";") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading grid map: %w", err)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("grid map is empty")
	}

	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}

	w := newWorld(width+2, len(lines)+2, cellSize)
	for r, l := range lines {
		for c := 0; c < width; c++ {
			b := byte('.')
			if c < len(l) {
				b = l[c]
			}
			if _, ok := LabelOf(b); !ok {
				return nil, fmt.Errorf("grid map line %d: unknown cell %q", r+1, b)
			}
			if b == ' ' {
				b = '.'
			}
			w.set(c+1, r+1, b)
		}
	}
	if w.freeCount() == 0 {
		return nil, fmt.Errorf("grid map has no floor cells")
	}
	return w, nil
}

// LoadWorld parses the floor plan at path.
func LoadWorld(path string, cellSize float64) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening grid map: %w", err)
	}
	defer f.Close()
	return ParseWorld(f, cellSize)
}

// Procedural generates a walled room with scattered single-cell obstacles.
// Every obstacle keeps its eight neighbours free, so the floor stays
// connected. The same seed yields the same room.
func Procedural(seed int64, cols, rows int, cellSize float64) *World {
	w := newWorld(cols, rows, cellSize)
	for r := 1; r < rows-1; r++ {
		for c := 1; c < cols-1; c++ {
			w.set(c, r, '.')
		}
	}

	rng := rand.New(rand.NewSource(seed))
	want := (cols - 2) * (rows - 2) / 30
	for i, tries := 0, 0; i < want && tries < want*20; tries++ {
		c := 2 + rng.Intn(max(1, cols-4))
		r := 2 + rng.Intn(max(1, rows-4))
		if !w.clearAround(c, r) {
			continue
		}
		w.set(c, r, byte('A'+i%26))
		i++
	}
	return w
}

func newWorld(cols, rows int, cellSize float64) *World {
	cells := make([]byte, cols*rows)
	for i := range cells {
		cells[i] = '#'
	}
	return &World{Cols: cols, Rows: rows, CellSize: cellSize, cells: cells}
}

func (w *World) set(c, r int, b byte) { w.cells[r*w.Cols+c] = b }

// At returns the map byte of a cell. Cells outside the plan are walls.
func (w *World) At(c, r int) byte {
	if c < 0 || r < 0 || c >= w.Cols || r >= w.Rows {
		return '#'
	}
	return w.cells[r*w.Cols+c]
}

// Free reports whether a cell is walkable floor.
func (w *World) Free(c, r int) bool { return w.At(c, r) == '.' }

// Label returns the semantic label of a cell.
func (w *World) Label(c, r int) uint32 {
	l, _ := LabelOf(w.At(c, r))
	return l
}

// Cell returns the cell containing p.
func (w *World) Cell(p geom.Vec3) (c, r int) {
	return int(math.Floor(p.X / w.CellSize)), int(math.Floor(p.Z / w.CellSize))
}

// Center returns the floor point at the middle of a cell.
func (w *World) Center(c, r int) geom.Vec3 {
	return geom.Vec3{X: (float64(c) + 0.5) * w.CellSize, Z: (float64(r) + 0.5) * w.CellSize}
}

// Bounds returns the extent of the plan on X and Z.
func (w *World) Bounds() (maxX, maxZ float64) {
	return float64(w.Cols) * w.CellSize, float64(w.Rows) * w.CellSize
}

// FirstFree returns the center of the first floor cell in row-major order.
func (w *World) FirstFree() (geom.Vec3, bool) {
	for r := 0; r < w.Rows; r++ {
		for c := 0; c < w.Cols; c++ {
			if w.Free(c, r) {
				return w.Center(c, r), true
			}
		}
	}
	return geom.Vec3{}, false
}

// String renders the plan in the format ParseWorld reads, border included.
func (w *World) String() string {
	var b strings.Builder
	for r := 0; r < w.Rows; r++ {
		b.Write(w.cells[r*w.Cols : (r+1)*w.Cols])
		b.WriteByte('\n')
	}
	return b.String()
}

func (w *World) clearAround(c, r int) bool {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if !w.Free(c+dc, r+dr) {
				return false
			}
		}
	}
	return true
}

func (w *World) freeCount() int {
	n := 0
	for _, b := range w.cells {
		if b == '.' {
			n++
		}
	}
	return n
}
