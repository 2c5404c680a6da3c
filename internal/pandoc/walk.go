package pandoc

import "sort"

// Action is called for every element found by Walk.
// format is the target output format passed to the filter and meta is the
// document's metadata map.
type Action func(n Node, format string, meta map[string]any)

// Walk visits every tagged element of the document depth-first, metadata
// first and then blocks. Elements nested in any payload are visited too.
// Walk never modifies the tree.
func Walk(d *Document, format string, action Action) {
	meta := d.Meta()
	w := walker{format: format, meta: meta, action: action}
	w.value(meta)
	w.value(d.Blocks())
}

type walker struct {
	format string
	meta   map[string]any
	action Action
}

func (w walker) value(v any) {
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			w.value(item)
		}
	case map[string]any:
		if tag, content, ok := element(x); ok {
			w.action(Classify(tag, content), w.format, w.meta)
			w.value(content)
			return
		}
		// Sorted so that traversal order does not depend on map iteration.
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.value(x[k])
		}
	}
}
