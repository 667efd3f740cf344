package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Exporter provides methods to export graphs in different formats
type Exporter[S any] struct {
	graph *Graph[S]
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter[S any](graph *Graph[S]) *Exporter[S] {
	return &Exporter[S]{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (ge *Exporter[S]) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options
func (ge *Exporter[S]) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder
	g := ge.graph

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	if g.entryPoint != "" {
		sb.WriteString("    START([\"START\"])\n")
		fmt.Fprintf(&sb, "    START --> %s\n", g.entryPoint)
		sb.WriteString("    style START fill:#90EE90\n")
	}

	for _, node := range g.Nodes() {
		if node.Name == g.entryPoint {
			fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", node.Name, node.Name)
		} else {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", node.Name, node.Name)
		}
	}

	if ge.hasEnd() {
		sb.WriteString("    END([\"END\"])\n")
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	for _, edge := range g.Edges() {
		if !edge.IsConditional() {
			fmt.Fprintf(&sb, "    %s --> %s\n", edge.From, edge.To)
			continue
		}
		for _, key := range sortedKeys(edge.Branches) {
			fmt.Fprintf(&sb, "    %s -.->|%s| %s\n", edge.From, key, edge.Branches[key])
		}
	}

	for _, name := range g.FinishPoints() {
		if _, ok := g.edges[name]; !ok {
			fmt.Fprintf(&sb, "    %s --> END\n", name)
		}
	}

	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", g.entryPoint)
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter[S]) DrawDOT() string {
	var sb strings.Builder
	g := ge.graph

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	if g.entryPoint != "" {
		sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
		fmt.Fprintf(&sb, "    START -> %s;\n", g.entryPoint)
		fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", g.entryPoint)
	}

	if ge.hasEnd() {
		sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}

	for _, edge := range g.Edges() {
		if !edge.IsConditional() {
			fmt.Fprintf(&sb, "    %s -> %s;\n", edge.From, edge.To)
			continue
		}
		for _, key := range sortedKeys(edge.Branches) {
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed, label=\"%s\"];\n", edge.From, edge.Branches[key], key)
		}
	}

	for _, name := range g.FinishPoints() {
		if _, ok := g.edges[name]; !ok {
			fmt.Fprintf(&sb, "    %s -> END;\n", name)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// DrawASCII generates an ASCII tree representation of the graph
func (ge *Exporter[S]) DrawASCII() string {
	if ge.graph.entryPoint == "" {
		return "No entry point set\n"
	}

	var sb strings.Builder
	visited := make(map[string]bool)

	sb.WriteString("Graph Execution Flow:\n")
	sb.WriteString("├── START\n")

	ge.drawASCIINode(ge.graph.entryPoint, "", "│   ", true, visited, &sb)

	return sb.String()
}

// drawASCIINode recursively draws ASCII representation of nodes
func (ge *Exporter[S]) drawASCIINode(nodeName, label, prefix string, isLast bool, visited map[string]bool, sb *strings.Builder) {
	connector := "├──"
	nextPrefix := prefix + "│   "
	if isLast {
		connector = "└──"
		nextPrefix = prefix + "    "
	}

	if label != "" {
		label = fmt.Sprintf("[%s] ", label)
	}

	if visited[nodeName] {
		fmt.Fprintf(sb, "%s%s %s%s (cycle)\n", prefix, connector, label, nodeName)
		return
	}
	visited[nodeName] = true

	fmt.Fprintf(sb, "%s%s %s%s\n", prefix, connector, label, nodeName)

	if nodeName == END {
		return
	}

	edge, ok := ge.graph.edges[nodeName]
	if !ok {
		if ge.graph.finish[nodeName] {
			ge.drawASCIINode(END, "", nextPrefix, true, visited, sb)
		}
		return
	}

	if !edge.IsConditional() {
		ge.drawASCIINode(edge.To, "", nextPrefix, true, visited, sb)
		return
	}

	keys := sortedKeys(edge.Branches)
	for i, key := range keys {
		ge.drawASCIINode(edge.Branches[key], key, nextPrefix, i == len(keys)-1, visited, sb)
	}
}

func (ge *Exporter[S]) hasEnd() bool {
	for _, edge := range ge.graph.Edges() {
		for _, target := range edge.Targets() {
			if target == END {
				return true
			}
		}
	}
	return len(ge.graph.finish) > 0
}

// WriteFile writes the diagram to path. The format follows the extension:
// ".dot" and ".gv" produce DOT, ".txt" produces ASCII, anything else Mermaid.
func (ge *Exporter[S]) WriteFile(path string) error {
	var content string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dot", ".gv":
		content = ge.DrawDOT()
	case ".txt":
		content = ge.DrawASCII()
	default:
		content = ge.DrawMermaid()
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write graph diagram: %w", err)
	}
	return nil
}
