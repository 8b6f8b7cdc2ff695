package htmlutil

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var ErrDanglingLabel = errors.New("label is not followed by a value")

// TextNodes parses an HTML fragment and returns its non-blank text nodes in
// document order, trimmed.
func TextNodes(fragment string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	var out []string
	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			text := strings.TrimSpace(node.Data)
			if text != "" {
				out = append(out, text)
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return out, nil
}

// LabeledValues walks the text nodes of fragment and captures, for every text
// node equal to one of labels, the text node that follows it. A label that is
// the last text node is an error. Labels that never occur are absent from the
// result.
func LabeledValues(fragment string, labels ...string) (map[string]string, error) {
	nodes, err := TextNodes(fragment)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(labels))
	for _, l := range labels {
		wanted[l] = true
	}

	values := map[string]string{}
	for i, text := range nodes {
		if !wanted[text] {
			continue
		}
		if i+1 >= len(nodes) {
			return nil, fmt.Errorf("%q: %w", text, ErrDanglingLabel)
		}
		values[text] = nodes[i+1]
	}
	return values, nil
}
