// Package discovery walks a manifest directory and yields the containers
// the engine should evaluate. The engine itself never touches the
// filesystem layout.
package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/opscart/k8s-resource-resizer/pkg/engine"
	"github.com/opscart/k8s-resource-resizer/pkg/manifest"
)

// Discoverer scans directories for workload manifests.
type Discoverer struct {
	Verbose bool
}

// Discover returns one engine target per container declaration found
// under dir. Malformed YAML files are skipped with a warning rather than
// aborting the walk; a GitOps repo routinely holds templated files that
// are not plain YAML.
func (d *Discoverer) Discover(dir string) ([]engine.Target, error) {
	var targets []engine.Target

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path == dir {
				return nil
			}
			// Helm chart template dirs hold Go-templated YAML, not
			// parseable manifests.
			if entry.Name() == "templates" || strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}

		file, err := manifest.Load(path)
		if err != nil {
			fmt.Printf("[WARN] Skipping unparsable manifest %s: %v\n", path, err)
			return nil
		}

		for _, dc := range file.Containers() {
			targets = append(targets, engine.Target{
				Path:      path,
				Container: dc.Container,
				Current:   dc.Current,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	if d.Verbose {
		fmt.Printf("[DEBUG] Discovered %d containers under %s\n", len(targets), dir)
	}
	return targets, nil
}
