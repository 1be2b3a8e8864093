package manifest

import (
	"gopkg.in/yaml.v3"

	"github.com/opscart/k8s-resource-resizer/pkg/models"
)

// Workload kinds whose pod templates carry container resource blocks.
var workloadKinds = map[string]bool{
	"Deployment":  true,
	"StatefulSet": true,
	"DaemonSet":   true,
	"ReplicaSet":  true,
	"Job":         true,
	"CronJob":     true,
	"Pod":         true,
}

// DiscoveredContainer is a container declaration found in a manifest,
// with whatever resource values it currently declares.
type DiscoveredContainer struct {
	Container models.ContainerID
	Current   models.ResourceValues
}

// Containers lists the container identities declared by workload documents
// in the file. Helm values and other free-form documents carry no reliable
// container identity and are skipped; they are still editable when the
// identity is supplied from elsewhere.
func (f *File) Containers() []DiscoveredContainer {
	var found []DiscoveredContainer
	for _, doc := range f.Docs {
		root := unwrapDocument(doc)
		if root == nil || root.Kind != yaml.MappingNode {
			continue
		}

		kind := mapValue(root, "kind")
		if kind == nil || !workloadKinds[kind.Value] {
			continue
		}

		meta := mapValue(root, "metadata")
		name := mapValue(meta, "name")
		if name == nil || name.Value == "" {
			continue
		}
		namespace := ""
		if ns := mapValue(meta, "namespace"); ns != nil {
			namespace = ns.Value
		}

		spec := mapValue(root, "spec")
		for _, containers := range []*yaml.Node{
			mapValue(mapValue(mapValue(spec, "template"), "spec"), "containers"),
			mapValue(spec, "containers"),
		} {
			if containers == nil || containers.Kind != yaml.SequenceNode {
				continue
			}
			for _, item := range containers.Content {
				cname := mapValue(item, "name")
				if cname == nil || cname.Value == "" {
					continue
				}
				id := models.ContainerID{
					Namespace: namespace,
					Workload:  name.Value,
					Container: cname.Value,
				}
				var current models.ResourceValues
				if res := mapValue(item, "resources"); res != nil {
					// Unparsable declared values are surfaced later
					// by the mutator; discovery tolerates them.
					current, _ = readValues(res)
				}
				found = append(found, DiscoveredContainer{Container: id, Current: current})
			}
		}
	}
	return found
}
