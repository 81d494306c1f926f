// ABOUTME: GraphViz rendering of funnel pipelines
// ABOUTME: Draws each funnel's stages left to right with lead counts
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
)

type GraphGenerator struct {
	repo *crm.Repository
}

func NewGraphGenerator(repo *crm.Repository) *GraphGenerator {
	return &GraphGenerator{repo: repo}
}

// GeneratePipelineGraph renders one funnel, or every funnel when funnelID is empty,
// as DOT source.
func (g *GraphGenerator) GeneratePipelineGraph(funnelID string) (string, error) {
	var funnels []models.Funnel
	if funnelID == "" {
		funnels = g.repo.Funnels()
	} else {
		f, err := g.repo.Funnel(funnelID)
		if err != nil {
			return "", err
		}
		funnels = []models.Funnel{f}
	}

	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)

	for _, f := range funnels {
		if err := g.addFunnel(graph, f); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func (g *GraphGenerator) addFunnel(graph *cgraph.Graph, f models.Funnel) error {
	counts := make(map[string]int)
	for _, l := range g.repo.LeadsByFunnel(f.ID) {
		counts[l.Stage]++
	}

	root, err := graph.CreateNodeByName("funnel-" + f.ID)
	if err != nil {
		return fmt.Errorf("failed to create funnel node: %w", err)
	}
	root.SetLabel(f.Name)
	root.SetShape("doublecircle")

	prev := root
	for _, s := range f.SortedStages() {
		node, err := graph.CreateNodeByName("stage-" + f.ID + "-" + s.ID)
		if err != nil {
			return fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s (%d)", s.Name, counts[s.ID]))
		node.SetShape("box")

		if _, err := graph.CreateEdgeByName("", prev, node); err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
		prev = node
	}
	return nil
}
