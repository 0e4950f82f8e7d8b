// Package whail provides a Docker isolation layer ("whale jail") for test
// fixtures. It wraps the moby client with label-based resource isolation,
// ensuring operations only affect containers created by this engine.
package whail

import (
	"maps"

	"github.com/moby/moby/client"
)

// MergeLabels merges multiple label maps, with later maps overriding earlier ones.
// Returns a new map containing all labels.
func MergeLabels(labelMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range labelMaps {
		maps.Copy(result, m)
	}
	return result
}

// LabelFilter creates a Docker filter for a single label key=value.
// The key should include the prefix (e.g., "com.myapp.managed").
func LabelFilter(key, value string) client.Filters {
	return client.Filters{}.Add("label", key+"="+value)
}

// LabelFilterMultiple creates a Docker filter from multiple label key=value pairs.
// All labels must match (AND logic).
func LabelFilterMultiple(labels map[string]string) client.Filters {
	f := client.Filters{}
	for k, v := range labels {
		f = f.Add("label", k+"="+v)
	}
	return f
}
