package pandoc

// Element tags used by this package.
const (
	TagCite        = "Cite"
	TagStr         = "Str"
	TagMetaInlines = "MetaInlines"
	TagMetaString  = "MetaString"
)

// Node is a classified pandoc element. It is one of Cite or Element.
type Node interface {
	node()
}

// Cite is a citation element. Its payload is a pair of
// (citation list, rendered inlines).
type Cite struct {
	Citations []Citation
	Inlines   []any
}

// Element is any tagged element other than Cite.
type Element struct {
	Tag     string
	Content any
}

func (Cite) node()    {}
func (Element) node() {}

// Citation is one reference inside a Cite element.
type Citation struct {
	ID     string         // citationId
	Fields map[string]any // the full descriptor, including citationId
}

// Classify turns a {"t": tag, "c": content} pair into a Node.
// A Cite whose payload does not have the expected shape is returned as an
// Element so that it is still walked but contributes no citations.
func Classify(tag string, content any) Node {
	if tag != TagCite {
		return Element{Tag: tag, Content: content}
	}

	pair, ok := content.([]any)
	if !ok || len(pair) != 2 {
		return Element{Tag: tag, Content: content}
	}
	list, ok := pair[0].([]any)
	if !ok {
		return Element{Tag: tag, Content: content}
	}

	cite := Cite{}
	for _, c := range list {
		fields, ok := c.(map[string]any)
		if !ok {
			continue
		}
		id, ok := fields["citationId"].(string)
		if !ok {
			continue
		}
		cite.Citations = append(cite.Citations, Citation{ID: id, Fields: fields})
	}
	cite.Inlines, _ = pair[1].([]any)
	return cite
}

// Str builds a Str inline.
func Str(text string) map[string]any {
	return map[string]any{"t": TagStr, "c": text}
}

// MetaInlines builds a MetaInlines metadata value.
func MetaInlines(inlines ...map[string]any) map[string]any {
	c := make([]any, len(inlines))
	for i, in := range inlines {
		c[i] = in
	}
	return map[string]any{"t": TagMetaInlines, "c": c}
}

// element reports whether v is a tagged element and returns its parts.
func element(v any) (string, any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", nil, false
	}
	tag, ok := m["t"].(string)
	if !ok {
		return "", nil, false
	}
	return tag, m["c"], true
}
