/*
Package mazeconfig saves and restores an arena as a structured text document.

A config holds the map size, the base building block size and three ordered
lists of building blocks (walls, agents, goals). Each block is a position, a
unit quaternion rotation in [x, y, z, w] order and a type tag:

	{
	  "Agents": [{"Position": [x, y, z], "Rotation": [x, y, z, w], "Type": "Active"}],
	  "Goals":  [{"Position": [x, y, z], "Rotation": [x, y, z, w], "Type": "Sphere"}],
	  "Map": {
	    "mapSize": [width, depth],
	    "baseBuildingBlockSize": [x, y, z],
	    "Walls": [{"Position": [x, y, z], "Rotation": [x, y, z, w], "Type": "Movable"}]
	  }
	}

Unknown type tags are accepted and resolved to the defaults of the game package.
*/
package mazeconfig

import (
	"github.com/beka-birhanu/vinom-arena/game"
)

// BuildingBlock is one serialised entity.
type BuildingBlock struct {
	Position [3]float64 `json:"Position" yaml:"Position" bson:"position"`
	Rotation [4]float64 `json:"Rotation" yaml:"Rotation" bson:"rotation"`
	Type     string     `json:"Type" yaml:"Type" bson:"type"`
}

// Pose converts the block back to a pose.
func (b BuildingBlock) Pose() game.Pose {
	return game.Pose{
		Position: game.Vec3FromArray(b.Position),
		Rotation: game.QuatFromArray(b.Rotation),
	}
}

// NewBuildingBlock serialises a pose and its type tag.
func NewBuildingBlock(p game.Pose, tag string) BuildingBlock {
	return BuildingBlock{
		Position: p.Position.Array(),
		Rotation: p.Rotation.Array(),
		Type:     tag,
	}
}

// MapDescription is the static part of an arena.
type MapDescription struct {
	MapSize               [2]float64      `json:"mapSize" yaml:"mapSize" bson:"mapSize"`
	BaseBuildingBlockSize [3]float64      `json:"baseBuildingBlockSize" yaml:"baseBuildingBlockSize" bson:"baseBuildingBlockSize"`
	Walls                 []BuildingBlock `json:"Walls" yaml:"Walls" bson:"walls"`
}

// MazeConfig is a full arena snapshot.
type MazeConfig struct {
	Agents []BuildingBlock `json:"Agents" yaml:"Agents" bson:"agents"`
	Goals  []BuildingBlock `json:"Goals" yaml:"Goals" bson:"goals"`
	Map    MapDescription  `json:"Map" yaml:"Map" bson:"map"`
}

// normalize replaces nil lists by empty ones so an encoded config always
// carries every list.
func (c *MazeConfig) normalize() {
	if c.Agents == nil {
		c.Agents = []BuildingBlock{}
	}
	if c.Goals == nil {
		c.Goals = []BuildingBlock{}
	}
	if c.Map.Walls == nil {
		c.Map.Walls = []BuildingBlock{}
	}
}

// Dump captures the starting poses and type tags of every entity of a.
// The block size is taken from the first obstacle, or is a unit cube when the
// arena has none.
func Dump(a *game.Arena) MazeConfig {
	blockSize := game.Vec3{X: 1, Y: 1, Z: 1}
	if len(a.Obstacles) > 0 {
		blockSize = a.Obstacles[0].Scale
	}

	cfg := MazeConfig{
		Agents: make([]BuildingBlock, 0, len(a.Agents)),
		Goals:  make([]BuildingBlock, 0, len(a.Goals)),
		Map: MapDescription{
			MapSize:               [2]float64{a.Surface.Scale.X, a.Surface.Scale.Z},
			BaseBuildingBlockSize: blockSize.Array(),
			Walls:                 make([]BuildingBlock, 0, len(a.Obstacles)),
		},
	}

	for _, o := range a.Obstacles {
		cfg.Map.Walls = append(cfg.Map.Walls, NewBuildingBlock(o.Start, o.Type.String()))
	}
	for _, agent := range a.Agents {
		cfg.Agents = append(cfg.Agents, NewBuildingBlock(agent.Start, agent.Team.String()))
	}
	for _, g := range a.Goals {
		cfg.Goals = append(cfg.Goals, NewBuildingBlock(g.Start, g.Type.String()))
	}

	return cfg
}
