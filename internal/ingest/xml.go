package ingest

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"linka/internal/dataprocessing"
)

// xmlNode is a generic element tree
type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

// parseXML treats the children of the root element as records. Attributes
// become "@name" columns, leaf children become columns and deeper elements
// are lifted into dotted columns.
func parseXML(ctx context.Context, src Source) (*dataprocessing.Dataset, error) {
	root, err := decodeXML(src.Reader)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrEmptyFile
	}

	records := root.children
	if len(records) == 0 {
		records = []*xmlNode{root}
	}

	b := newRowBuilder()
	for i, node := range records {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := make(map[string]any)
		node.flattenInto("", rec)
		if len(rec) == 0 {
			continue
		}
		b.add(rec)
	}
	if len(b.rows) == 0 {
		return nil, ErrEmptyFile
	}
	return b.dataset(), nil
}

func decodeXML(r io.Reader) (*xmlNode, error) {
	dec := xml.NewDecoder(r)

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformed)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	return root, nil
}

// flattenInto writes the node's fields into rec. Repeated child names get an
// index suffix so no value is lost.
func (n *xmlNode) flattenInto(prefix string, rec map[string]any) {
	for _, a := range n.attrs {
		rec[join(prefix, "@"+a.Name.Local)] = a.Value
	}
	if len(n.children) == 0 {
		if text := strings.TrimSpace(n.text.String()); text != "" || len(n.attrs) == 0 {
			key := prefix
			if key == "" {
				key = n.name
			}
			rec[key] = text
		}
		return
	}

	counts := make(map[string]int, len(n.children))
	for _, c := range n.children {
		counts[c.name]++
	}
	index := make(map[string]int, len(n.children))
	for _, c := range n.children {
		name := c.name
		if counts[name] > 1 {
			index[name]++
			name = fmt.Sprintf("%s_%d", name, index[name])
		}
		c.flattenInto(join(prefix, name), rec)
	}
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
