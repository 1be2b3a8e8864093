package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// ContainerNotFoundError means a manifest document tree has no resource
// block for the requested container. Recoverable: the container is
// skipped, other containers in the same file proceed.
type ContainerNotFoundError struct {
	Container models.ContainerID
	Path      string
}

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("container %s not found in %s", e.Container, e.Path)
}

// mapValue returns the value node for key in a mapping node, or nil.
func mapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// ensureMapValue returns the value node for key, appending an empty
// mapping entry when the key is absent.
func ensureMapValue(node *yaml.Node, key string) *yaml.Node {
	if existing := mapValue(node, key); existing != nil {
		return existing
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	valNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	node.Content = append(node.Content, keyNode, valNode)
	return valNode
}

// unwrapDocument steps through a document node to its payload mapping.
func unwrapDocument(doc *yaml.Node) *yaml.Node {
	if doc != nil && doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// locateResources finds the resources mapping for a container within one
// document, creating the mapping under the container entry when the entry
// exists but declares no resources yet. It understands raw workload specs
// (and Kustomize patches, which share their shape) and the container- or
// workload-keyed blocks Helm values files use.
func locateResources(doc *yaml.Node, id models.ContainerID) *yaml.Node {
	root := unwrapDocument(doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil
	}

	// Workload spec: spec.template.spec.containers[] or spec.containers[].
	if container := findWorkloadContainer(root, id); container != nil {
		return ensureMapValue(container, "resources")
	}

	// Helm values: a block keyed by the container or workload name that
	// carries a resources mapping.
	for _, key := range []string{id.Container, id.Workload} {
		if block := findNamedBlock(root, key); block != nil {
			return ensureMapValue(block, "resources")
		}
	}

	// Single-purpose values file with resources at the top level.
	if res := mapValue(root, "resources"); res != nil && res.Kind == yaml.MappingNode {
		if mapValue(res, "requests") != nil || mapValue(res, "limits") != nil {
			return res
		}
	}

	return nil
}

// findWorkloadContainer matches a container entry by name inside a
// workload document. When the document names a workload in metadata, it
// must match the target's workload.
func findWorkloadContainer(root *yaml.Node, id models.ContainerID) *yaml.Node {
	if meta := mapValue(root, "metadata"); meta != nil {
		if name := mapValue(meta, "name"); name != nil && name.Value != "" && name.Value != id.Workload {
			return nil
		}
	}

	spec := mapValue(root, "spec")
	if spec == nil {
		return nil
	}

	for _, containers := range []*yaml.Node{
		mapValue(mapValue(mapValue(spec, "template"), "spec"), "containers"),
		mapValue(spec, "containers"),
	} {
		if containers == nil || containers.Kind != yaml.SequenceNode {
			continue
		}
		for _, item := range containers.Content {
			if name := mapValue(item, "name"); name != nil && name.Value == id.Container {
				return item
			}
		}
	}
	return nil
}

// findNamedBlock searches depth-first for a mapping under the given key
// that holds a resources mapping, the shape Helm values files use.
func findNamedBlock(node *yaml.Node, key string) *yaml.Node {
	if node == nil || key == "" {
		return nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]
			if k.Value == key && v.Kind == yaml.MappingNode && mapValue(v, "resources") != nil {
				return v
			}
		}
		for i := 1; i < len(node.Content); i += 2 {
			if found := findNamedBlock(node.Content[i], key); found != nil {
				return found
			}
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if found := findNamedBlock(item, key); found != nil {
				return found
			}
		}
	}
	return nil
}

// readValues extracts the currently declared request/limit values from a
// resources mapping. Absent entries stay zero; unparsable entries are
// reported.
func readValues(resources *yaml.Node) (models.ResourceValues, error) {
	var vals models.ResourceValues
	var err error

	read := func(section, key string, parse func(string) (float64, error), dst *float64) {
		node := mapValue(mapValue(resources, section), key)
		if node == nil || node.Value == "" {
			return
		}
		v, perr := parse(node.Value)
		if perr != nil && err == nil {
			err = perr
			return
		}
		*dst = v
	}

	read("requests", "cpu", ParseCPU, &vals.CPURequest)
	read("requests", "memory", ParseMemory, &vals.MemoryRequest)
	read("limits", "cpu", ParseCPU, &vals.CPULimit)
	read("limits", "memory", ParseMemory, &vals.MemoryLimit)
	return vals, err
}

// setScalar updates or inserts one quantity value, preserving the style of
// an existing node.
func setScalar(section *yaml.Node, key, value string) {
	if existing := mapValue(section, key); existing != nil {
		existing.Value = value
		existing.Tag = "!!str"
		return
	}
	section.Content = append(section.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}
