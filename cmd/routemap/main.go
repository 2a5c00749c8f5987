// routemap renders airship route overlays onto a generated world map.
//
//	routemap -routes routes.yaml -out ./maps
//
// The routes file names the world (seed, map size, sea level) and the dock
// and route layout; the terrain is regenerated deterministically from the
// seed, so the output matches what a live core with the same parameters
// materializes.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"majestik.world/internal/civ/routemap"
	"majestik.world/internal/sim/terrain"
)

type routesFile struct {
	Seed       int64  `yaml:"seed"`
	MapSizeLgX uint32 `yaml:"map_size_lg_x"`
	MapSizeLgY uint32 `yaml:"map_size_lg_y"`
	SeaLevel   int32  `yaml:"sea_level"`

	Docks  []routemap.Dock  `yaml:"docks"`
	Routes []routemap.Route `yaml:"routes"`
}

func main() {
	var (
		routesPath = flag.String("routes", "", "path to routes .yaml")
		outDir     = flag.String("out", ".", "output directory for PNG maps")
		worldOnly  = flag.Bool("world_only", false, "render the world map without route overlay")
	)
	flag.Parse()

	if *routesPath == "" {
		fmt.Fprintln(os.Stderr, "missing -routes")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*routesPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read routes:", err)
		os.Exit(1)
	}
	var rf routesFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		fmt.Fprintln(os.Stderr, "parse routes:", err)
		os.Exit(1)
	}
	if rf.MapSizeLgX > 15 || rf.MapSizeLgY > 15 {
		fmt.Fprintln(os.Stderr, "map_size_lg axes must be at most 15")
		os.Exit(1)
	}

	sizeX := uint32(1) << rf.MapSizeLgX
	sizeY := uint32(1) << rf.MapSizeLgY

	store := terrain.NewChunkStore(terrain.Gen{
		Seed:     rf.Seed,
		SeaLevel: rf.SeaLevel,
		SizeX:    sizeX,
		SizeY:    sizeY,
	}, terrain.NewChanges())
	store.MaterializeNext(int(sizeX * sizeY))

	if *worldOnly {
		if err := routemap.ExportWorldMap(*outDir, rf.Seed, store, rf.SeaLevel, sizeX, sizeY); err != nil {
			fmt.Fprintln(os.Stderr, "export world map:", err)
			os.Exit(1)
		}
		fmt.Printf("world map for seed %d (%dx%d chunks) written to %s\n", rf.Seed, sizeX, sizeY, *outDir)
		return
	}

	if err := routemap.ExportRouteMaps(*outDir, rf.Seed, store, rf.SeaLevel, sizeX, sizeY, rf.Docks, rf.Routes); err != nil {
		fmt.Fprintln(os.Stderr, "export route map:", err)
		os.Exit(1)
	}
	fmt.Printf("route map for seed %d (%d docks, %d routes) written to %s\n",
		rf.Seed, len(rf.Docks), len(rf.Routes), *outDir)
}
