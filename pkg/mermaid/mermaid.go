// Package mermaid serializes normalized diagrams into Mermaid markup.
//
// Flows become sequenceDiagram documents, full diagrams become
// flowchart TD documents with subgraph nesting. Emission is
// deterministic: identical input produces byte-identical output. Label
// and name text passes through verbatim apart from escaping the few
// characters that are syntactically significant to Mermaid.
package mermaid

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/icetools/iceflow/pkg/diagram"
)

// Sequence renders a normalized flow as a Mermaid sequence diagram.
// Participants are declared once each, in first-appearance order,
// before any statement references them. Steps whose type marks a reply
// or return are drawn with dotted arrows; steps without a target are
// drawn as dotted self-messages.
func Sequence(seq *diagram.Sequence) string {
	var buf bytes.Buffer
	buf.WriteString("sequenceDiagram\n")
	buf.WriteString("  autonumber\n")

	for _, p := range seq.Participants {
		fmt.Fprintf(&buf, "  participant %s as %s\n", SanitizeID(p.ID), escapeLine(p.Name))
	}

	for _, step := range seq.Interactions {
		source := SanitizeID(step.SourceID)
		switch {
		case step.TargetID == "":
			fmt.Fprintf(&buf, "  %s -->> %s: %s\n", source, source, escapeLine(step.Description))
		case isReply(step.Type):
			fmt.Fprintf(&buf, "  %s -->> %s: %s\n", source, SanitizeID(step.TargetID), escapeLine(step.Description))
		default:
			fmt.Fprintf(&buf, "  %s ->> %s: %s\n", source, SanitizeID(step.TargetID), escapeLine(step.Description))
		}
	}

	return buf.String()
}

// Flowchart renders a normalized full diagram as a Mermaid flowchart.
// Nodes with children become subgraphs, rendered recursively; leaves
// become plain boxes. Links follow all node declarations.
func Flowchart(g *diagram.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("flowchart TD\n")

	children := g.Children()
	for _, root := range g.Roots() {
		writeNode(&buf, g, root, children, 1)
	}

	for _, link := range g.Links {
		source := SanitizeID(link.SourceID)
		target := SanitizeID(link.TargetID)
		if link.Label != "" {
			fmt.Fprintf(&buf, "  %s -->|%s| %s\n", source, escapeEdgeLabel(link.Label), target)
		} else {
			fmt.Fprintf(&buf, "  %s --> %s\n", source, target)
		}
	}

	return buf.String()
}

func writeNode(buf *bytes.Buffer, g *diagram.Graph, id string, children map[string][]string, depth int) {
	node, ok := g.NodeByID(id)
	if !ok {
		return
	}
	indent := strings.Repeat("  ", depth)

	kids := children[id]
	if len(kids) == 0 {
		fmt.Fprintf(buf, "%s%s[\"%s\"]\n", indent, SanitizeID(id), escapeQuoted(node.Name))
		return
	}

	fmt.Fprintf(buf, "%ssubgraph %s [\"%s\"]\n", indent, SanitizeID(id), escapeQuoted(node.Name))
	for _, kid := range kids {
		writeNode(buf, g, kid, children, depth+1)
	}
	fmt.Fprintf(buf, "%send\n", indent)
}

// isReply reports whether a step type represents a response rather
// than a call.
func isReply(stepType string) bool {
	lower := strings.ToLower(stepType)
	return strings.Contains(lower, "reply") || strings.Contains(lower, "return")
}

// SanitizeID strips everything but letters, digits, and underscores
// from an identifier so it is safe as a Mermaid node token.
func SanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

var lineReplacer = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
	"#", "#35;",
	";", "#59;",
)

// escapeLine makes text safe as single-line sequence diagram content.
// Newlines collapse to spaces; '#' and ';' are entity-escaped because
// they terminate or comment statements. Everything else, including
// Unicode, passes through unmodified.
func escapeLine(s string) string {
	return lineReplacer.Replace(s)
}

var quotedReplacer = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
	`"`, "&quot;",
)

// escapeQuoted makes text safe inside a double-quoted flowchart label.
func escapeQuoted(s string) string {
	return quotedReplacer.Replace(s)
}

var edgeReplacer = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
	"|", "#124;",
)

// escapeEdgeLabel makes text safe between the pipes of an edge label.
func escapeEdgeLabel(s string) string {
	return edgeReplacer.Replace(s)
}
