package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// NodeKind identifies the structural level of a parsed node.
type NodeKind string

const (
	KindTitle   NodeKind = "TITLE"
	KindPart    NodeKind = "PART"
	KindSubpart NodeKind = "SUBPART"
	KindSection NodeKind = "SECTION"
)

// UnassignedPartNumber is the synthetic part that collects sections found
// outside any part.
const UnassignedPartNumber = "unassigned"

// Node is one element of the parsed hierarchy. Text holds the node's
// directly-owned body text with citation, note, and editorial content
// removed.
type Node struct {
	Kind     NodeKind
	Number   string
	Heading  string
	Text     string
	Children []*Node
}

// Tree is the parsed hierarchy of one markup document.
type Tree struct {
	Roots []*Node
}

// structuralTags maps element names to node kinds. DIV-style names carry
// their level in a TYPE attribute instead.
var structuralTags = map[string]NodeKind{
	"TITLE":   KindTitle,
	"PART":    KindPart,
	"SUBPART": KindSubpart,
	"SECTION": KindSection,
}

// excludedTags are citation, footnote, and editorial-annotation elements
// whose text never belongs to the regulatory body.
var excludedTags = map[string]bool{
	"CITA":     true,
	"CITE":     true,
	"CITATION": true,
	"FTNT":     true,
	"NOTE":     true,
	"EDNOTE":   true,
	"AUTH":     true,
	"SOURCE":   true,
}

// numberTags hold a node's number as text, e.g. <SECTNO>§ 1.1</SECTNO>.
var numberTags = map[string]bool{
	"PARTNO": true,
	"SECTNO": true,
}

// headingTags hold a node's heading text.
var headingTags = map[string]bool{
	"HEAD":    true,
	"SUBJECT": true,
}

var (
	numberRe        = regexp.MustCompile(`\d+(?:\.\d+)*`)
	leadingNumberRe = regexp.MustCompile(`(?s)^(\d+(?:\.\d+)*)\s*(.*)$`)
)

// HierarchyParser parses one markup document into a tree of typed nodes.
type HierarchyParser struct{}

// NewHierarchyParser creates a hierarchy parser.
func NewHierarchyParser() *HierarchyParser {
	return &HierarchyParser{}
}

// Parse walks the markup and extracts every structural node, wherever it
// sits in the surrounding document. A failure is returned as an error for
// this document only.
func (p *HierarchyParser) Parse(markup string) (*Tree, error) {
	decoder := xml.NewDecoder(strings.NewReader(markup))

	var roots []*Node
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing markup: %w", err)
		}

		if start, ok := token.(xml.StartElement); ok {
			if kind, ok := kindOf(&start); ok {
				node, err := p.parseNode(decoder, &start, kind)
				if err != nil {
					return nil, err
				}
				roots = append(roots, node)
			} else if excludedTags[start.Name.Local] {
				if err := skipElement(decoder, &start); err != nil {
					return nil, fmt.Errorf("error skipping excluded element: %w", err)
				}
			}
			// Non-structural wrappers are walked through, not skipped,
			// so structure nested inside them is still found.
		}
	}

	tree := &Tree{Roots: roots}
	tree.attachOrphanSections()
	return tree, nil
}

// kindOf resolves an element to a structural kind, handling both direct
// names (<PART>) and DIV-style elements (<DIV5 TYPE="PART">).
func kindOf(start *xml.StartElement) (NodeKind, bool) {
	if kind, ok := structuralTags[start.Name.Local]; ok {
		return kind, true
	}
	if strings.HasPrefix(start.Name.Local, "DIV") && len(start.Name.Local) == 4 {
		for _, attr := range start.Attr {
			if attr.Name.Local == "TYPE" {
				kind, ok := structuralTags[attr.Value]
				return kind, ok
			}
		}
	}
	return "", false
}

// parseNode consumes one structural element and its subtree.
func (p *HierarchyParser) parseNode(
	decoder *xml.Decoder,
	start *xml.StartElement,
	kind NodeKind,
) (*Node, error) {
	node := &Node{Kind: kind}

	for _, attr := range start.Attr {
		if attr.Name.Local == "N" {
			node.Number = strings.TrimSpace(attr.Value)
		}
	}

	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing %s element: %w", kind, err)
		}

		if end, ok := token.(xml.EndElement); ok && end.Name.Local == start.Name.Local {
			break
		}

		if childStart, ok := token.(xml.StartElement); ok {
			name := childStart.Name.Local
			switch {
			case excludedTags[name]:
				if err := skipElement(decoder, &childStart); err != nil {
					return nil, fmt.Errorf("error skipping excluded element: %w", err)
				}
			case numberTags[name]:
				label, err := collectText(decoder, &childStart)
				if err != nil {
					return nil, err
				}
				if m := numberRe.FindString(label); m != "" {
					node.Number = m
				}
			case headingTags[name]:
				heading, err := collectText(decoder, &childStart)
				if err != nil {
					return nil, err
				}
				node.Heading = strings.TrimSpace(heading)
			default:
				if childKind, ok := kindOf(&childStart); ok {
					child, err := p.parseNode(decoder, &childStart, childKind)
					if err != nil {
						return nil, err
					}
					node.Children = append(node.Children, child)
				} else {
					if err := p.parseWrapper(decoder, &childStart, node, &text); err != nil {
						return nil, err
					}
				}
			}
		}

		if charData, ok := token.(xml.CharData); ok {
			appendText(&text, string(charData))
		}
	}

	node.Text = strings.TrimSpace(text.String())

	// Markup without number attributes or number elements carries the
	// number as the first token of the node's own text.
	if node.Number == "" {
		if m := leadingNumberRe.FindStringSubmatch(node.Text); m != nil {
			node.Number = m[1]
			node.Text = strings.TrimSpace(m[2])
		}
	}

	return node, nil
}

// parseWrapper walks a non-structural element found inside a structural
// node. Structural descendants (e.g. sections grouped under a subject
// wrapper) still become children of the enclosing node; everything else
// contributes text.
func (p *HierarchyParser) parseWrapper(
	decoder *xml.Decoder,
	start *xml.StartElement,
	node *Node,
	text *strings.Builder,
) error {
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error parsing %s element: %w", start.Name.Local, err)
		}

		if end, ok := token.(xml.EndElement); ok && end.Name.Local == start.Name.Local {
			return nil
		}

		if childStart, ok := token.(xml.StartElement); ok {
			if excludedTags[childStart.Name.Local] {
				if err := skipElement(decoder, &childStart); err != nil {
					return err
				}
				continue
			}
			if childKind, ok := kindOf(&childStart); ok {
				child, err := p.parseNode(decoder, &childStart, childKind)
				if err != nil {
					return err
				}
				node.Children = append(node.Children, child)
				continue
			}
			if err := p.parseWrapper(decoder, &childStart, node, text); err != nil {
				return err
			}
		}

		if charData, ok := token.(xml.CharData); ok {
			appendText(text, string(charData))
		}
	}
}

// extractText recursively gathers text from a non-structural element,
// discarding excluded subtrees.
func extractText(
	decoder *xml.Decoder,
	start *xml.StartElement,
	text *strings.Builder,
) error {
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error extracting text: %w", err)
		}

		if end, ok := token.(xml.EndElement); ok && end.Name.Local == start.Name.Local {
			return nil
		}

		if childStart, ok := token.(xml.StartElement); ok {
			if excludedTags[childStart.Name.Local] {
				if err := skipElement(decoder, &childStart); err != nil {
					return err
				}
				continue
			}
			if err := extractText(decoder, &childStart, text); err != nil {
				return err
			}
		}

		if charData, ok := token.(xml.CharData); ok {
			appendText(text, string(charData))
		}
	}
}

// collectText gathers all character data inside an element, including
// nested elements.
func collectText(decoder *xml.Decoder, start *xml.StartElement) (string, error) {
	var text strings.Builder
	if err := extractText(decoder, start, &text); err != nil {
		return "", err
	}
	return strings.TrimSpace(text.String()), nil
}

// skipElement consumes an element and its subtree without retaining
// anything.
func skipElement(decoder *xml.Decoder, start *xml.StartElement) error {
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == start.Name.Local {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				depth--
			}
		}
	}
	return nil
}

func appendText(text *strings.Builder, raw string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return
	}
	if text.Len() > 0 {
		text.WriteString(" ")
	}
	text.WriteString(trimmed)
}

// attachOrphanSections moves sections found outside any part into a
// synthetic "unassigned" part so a structural anomaly never fails the
// whole file.
func (t *Tree) attachOrphanSections() {
	var kept []*Node
	var orphans []*Node

	for _, root := range t.Roots {
		if root.Kind == KindSection {
			orphans = append(orphans, root)
			continue
		}
		if root.Kind == KindTitle {
			root.Children, orphans = liftSections(root.Children, orphans)
		}
		kept = append(kept, root)
	}

	if len(orphans) > 0 {
		kept = append(kept, &Node{
			Kind:     KindPart,
			Number:   UnassignedPartNumber,
			Heading:  "Unassigned Sections",
			Children: orphans,
		})
	}

	t.Roots = kept
}

// liftSections removes direct section children from a title's child list.
func liftSections(children []*Node, orphans []*Node) ([]*Node, []*Node) {
	var kept []*Node
	for _, child := range children {
		if child.Kind == KindSection {
			orphans = append(orphans, child)
		} else {
			kept = append(kept, child)
		}
	}
	return kept, orphans
}

// BodyText returns a node's extracted text: its own text followed by the
// recursively extracted text of its children, in document order.
func (n *Node) BodyText() string {
	var parts []string
	if n.Text != "" {
		parts = append(parts, n.Text)
	}
	for _, child := range n.Children {
		if childText := child.BodyText(); childText != "" {
			parts = append(parts, childText)
		}
	}
	return strings.Join(parts, "\n\n")
}

// CountKind returns the number of nodes of the given kind in the tree.
func (t *Tree) CountKind(kind NodeKind) int {
	count := 0
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, node := range nodes {
			if node.Kind == kind {
				count++
			}
			walk(node.Children)
		}
	}
	walk(t.Roots)
	return count
}
