package config

import (
	"path/filepath"
	"strings"
)

// SceneRef locates a scene and its dataset configuration.
type SceneRef struct {
	// Scene is a scene file path, or a scene name for datasets whose
	// configuration indexes scenes by name.
	Scene string `json:"scene" yaml:"scene"`
	// DatasetConfig is the dataset configuration file, empty when the
	// dataset has none.
	DatasetConfig string `json:"dataset_config,omitempty" yaml:"dataset_config,omitempty"`
}

// ResolveScene maps DatasetName and SceneName onto files under DataPath.
func (c *ScenarioConfig) ResolveScene() (SceneRef, error) {
	scene := c.SceneName

	switch c.DatasetName {
	case "gibson":
		return SceneRef{
			Scene:         filepath.Join(c.DataPath, "scene_datasets", "gibson", scene+".glb"),
			DatasetConfig: filepath.Join(c.DataPath, "pointnav", "gibson", "v1", "train", "content", scene+".json"),
		}, nil

	case "replica_cad":
		return SceneRef{
			Scene:         scene,
			DatasetConfig: filepath.Join(c.DataPath, "ReplicaCAD_dataset", "replicaCAD.scene_dataset_config.json"),
		}, nil

	case "hm3d_minival", "hm3d_v0.2_minival":
		// HM3D scene directories are named "<index>-<id>" and hold "<id>.basis.glb".
		parts := strings.Split(scene, "-")
		id := parts[len(parts)-1]
		return SceneRef{
			Scene:         filepath.Join(c.DataPath, "hm3d_v0.2", "minival", scene, id+".basis.glb"),
			DatasetConfig: filepath.Join(c.DataPath, "hm3d_v0.2", "hm3d_annotated_minival_basis.scene_dataset_config.json"),
		}, nil

	case "grid":
		if c.Simulator.GridMap != "" {
			return SceneRef{Scene: c.Simulator.GridMap}, nil
		}
		return SceneRef{Scene: scene}, nil

	default:
		return SceneRef{}, Errorf("dataset_name", "no such dataset: %q", c.DatasetName)
	}
}
