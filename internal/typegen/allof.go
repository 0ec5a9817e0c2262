package typegen

import (
	"github.com/dusansimic/openrpc-generator/internal/schema"
)

// mergeAllOf flattens an allOf into a single object node: the union of all
// property sets, where a later variant's property replaces an earlier one
// of the same name, and the union of all required sets. Referenced
// variants are followed and nested allOf nodes are flattened. It reports
// false when a variant is not object-shaped or nothing has properties.
func (c *Context) mergeAllOf(n *schema.Node) (*schema.Node, bool) {
	var (
		props    []schema.Property
		index    = map[string]int{}
		required []string
		visited  = map[string]bool{}
	)

	var walk func(v *schema.Node) bool
	walk = func(v *schema.Node) bool {
		if v == nil {
			return true
		}
		switch v.Kind {
		case schema.KindRef:
			key, name, ok := canonical(v.Ref)
			if !ok {
				return false
			}
			if visited[key] {
				return true
			}
			visited[key] = true
			target, ok := c.schemas[name]
			if !ok {
				return false
			}
			return walk(target)
		case schema.KindAllOf:
			for _, sub := range v.Variants {
				if !walk(sub) {
					return false
				}
			}
			return true
		case schema.KindObject:
			for _, p := range v.Properties {
				if i, ok := index[p.Name]; ok {
					props[i] = p
					continue
				}
				index[p.Name] = len(props)
				props = append(props, p)
			}
			required = append(required, v.RequiredNames()...)
			return true
		case schema.KindAny:
			return true
		}
		return false
	}

	for _, v := range n.Variants {
		if !walk(v) {
			return nil, false
		}
	}
	if len(props) == 0 {
		return nil, false
	}
	merged := schema.Object(props, required)
	merged.Title = n.Title
	merged.Description = n.Description
	merged.Deprecated = n.Deprecated
	return merged, true
}
