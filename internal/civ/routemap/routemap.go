// Package routemap renders debug cartography for the airship transportation
// network: dock nodes, route legs between them, and a basic altitude map of
// the materialized world. Output is PNG files written into the folder named
// by the AIRSHIP_ROUTES_LOG_FOLDER environment variable; rendering is a
// debug side path and never affects simulation state.
package routemap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"majestik.world/internal/sim/terrain"
)

// EnvRoutesLogFolder gates all route-map exports.
const EnvRoutesLogFolder = "AIRSHIP_ROUTES_LOG_FOLDER"

// Dock is one airship dock position in map pixel space.
type Dock struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Leg connects two docks by index.
type Leg struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Route is an ordered list of legs flown by one airship circuit.
type Route struct {
	Legs []Leg `yaml:"legs"`
}

var (
	colWater  = color.RGBA{30, 60, 120, 255}
	colLand   = color.RGBA{60, 110, 60, 255}
	colHigh   = color.RGBA{140, 130, 110, 255}
	colUnseen = color.RGBA{12, 12, 16, 255}
	colDock   = color.RGBA{240, 200, 60, 255}
	colRoute  = color.RGBA{220, 60, 60, 255}
)

// RenderWorldMap draws one pixel per altitude column of every materialized
// chunk. Unmaterialized regions stay dark.
func RenderWorldMap(store *terrain.ChunkStore, seaLevel int32, sizeX, sizeY uint32) *image.RGBA {
	w := int(sizeX) * terrain.ChunkDim
	h := int(sizeY) * terrain.ChunkDim
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			img.SetRGBA(px, py, colUnseen)
		}
	}
	for _, coord := range store.LoadedCoords() {
		ch, ok := store.Get(coord)
		if !ok {
			continue
		}
		for y := 0; y < terrain.ChunkDim; y++ {
			for x := 0; x < terrain.ChunkDim; x++ {
				alt := ch.Alt2(x, y)
				var c color.RGBA
				switch {
				case alt < seaLevel:
					c = colWater
				case alt < seaLevel+48:
					c = colLand
				default:
					c = colHigh
				}
				img.SetRGBA(int(coord.X)*terrain.ChunkDim+x, int(coord.Y)*terrain.ChunkDim+y, c)
			}
		}
	}
	return img
}

// DrawRoutes strokes every route leg and circles every dock onto img.
// Out-of-range leg indices are skipped.
func DrawRoutes(img *image.RGBA, docks []Dock, routes []Route) {
	for _, route := range routes {
		for _, leg := range route.Legs {
			if leg.From < 0 || leg.From >= len(docks) || leg.To < 0 || leg.To >= len(docks) {
				continue
			}
			a, b := docks[leg.From], docks[leg.To]
			drawLine(img, int(a.X), int(a.Y), int(b.X), int(b.Y), colRoute)
		}
	}
	for _, d := range docks {
		drawCircle(img, int(d.X), int(d.Y), 4, colDock)
	}
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// DecodePNG decodes a PNG stream, wrapping failures with decode context so
// callers can tell a bad map image from a missing one.
func DecodePNG(r io.Reader) (image.Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return img, nil
}

// ExportRouteMaps renders the route overlay on top of the world map and
// saves it as airship_routes_map_<seed>.png inside dir.
func ExportRouteMaps(dir string, seed int64, store *terrain.ChunkStore, seaLevel int32,
	sizeX, sizeY uint32, docks []Dock, routes []Route) error {
	img := RenderWorldMap(store, seaLevel, sizeX, sizeY)
	DrawRoutes(img, docks, routes)
	return SavePNG(filepath.Join(dir, fmt.Sprintf("airship_routes_map_%d.png", seed)), img)
}

// ExportWorldMap saves basic_world_map_<seed>.png inside dir.
func ExportWorldMap(dir string, seed int64, store *terrain.ChunkStore, seaLevel int32,
	sizeX, sizeY uint32) error {
	img := RenderWorldMap(store, seaLevel, sizeX, sizeY)
	return SavePNG(filepath.Join(dir, fmt.Sprintf("basic_world_map_%d.png", seed)), img)
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		setIfInside(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	x, y := r, 0
	err := 1 - r
	for x >= y {
		setIfInside(img, cx+x, cy+y, c)
		setIfInside(img, cx+y, cy+x, c)
		setIfInside(img, cx-y, cy+x, c)
		setIfInside(img, cx-x, cy+y, c)
		setIfInside(img, cx-x, cy-y, c)
		setIfInside(img, cx-y, cy-x, c)
		setIfInside(img, cx+y, cy-x, c)
		setIfInside(img, cx+x, cy-y, c)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
