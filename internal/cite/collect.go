package cite

import "github.com/matsen/pandoc-zotxt/internal/pandoc"

// Collector accumulates citation keys across Walk callbacks.
// Call Reset before reusing a Collector for an unrelated document.
type Collector struct {
	keys *KeySet
}

// NewCollector returns a Collector with an empty key set.
func NewCollector() *Collector {
	return &Collector{keys: NewKeySet()}
}

// Action is a pandoc.Action that records the citation keys of Cite nodes.
// Every other node kind contributes nothing.
func (c *Collector) Action(n pandoc.Node, _ string, _ map[string]any) {
	switch v := n.(type) {
	case pandoc.Cite:
		for _, citation := range v.Citations {
			if citation.ID == "" {
				continue
			}
			c.keys.Add(citation.ID)
		}
	case pandoc.Element:
		// no citations
	}
}

// Keys returns the accumulated key set.
func (c *Collector) Keys() *KeySet {
	return c.keys
}

// Reset clears the accumulated keys.
func (c *Collector) Reset() {
	c.keys.Reset()
}

// Collect returns the distinct citation keys of doc in order of first
// appearance. The target format does not affect which keys are collected.
func Collect(doc *pandoc.Document, format string) *KeySet {
	c := NewCollector()
	pandoc.Walk(doc, format, c.Action)
	return c.Keys()
}
