package diagram

import (
	"slices"
	"sort"
	"strings"

	"github.com/icetools/iceflow/pkg/errors"
	"github.com/icetools/iceflow/pkg/icepanel"
)

// BuildSequence normalizes a flow into a Sequence. Steps are ordered
// by their explicit index (ties broken by step id for determinism),
// participants are deduplicated by model object id in first-appearance
// order, and every step endpoint must resolve through the flow's
// diagram to a model object.
func BuildSequence(flow *icepanel.Flow, dia *icepanel.Diagram, model map[string]icepanel.ModelObject) (*Sequence, error) {
	steps := make([]icepanel.FlowStep, 0, len(flow.Steps))
	for _, step := range flow.Steps {
		steps = append(steps, step)
	}
	slices.SortFunc(steps, func(a, b icepanel.FlowStep) int {
		if a.Index != b.Index {
			return a.Index - b.Index
		}
		return strings.Compare(a.ID, b.ID)
	})

	seq := &Sequence{Name: flow.Name}
	for _, step := range steps {
		source, err := resolveParticipant(step.OriginID, flow, dia, model)
		if err != nil {
			return nil, err
		}
		seq.addParticipant(source)

		interaction := Interaction{
			ID:          step.ID,
			Type:        step.Type,
			Description: step.Description,
			SourceID:    source.ID,
		}

		if step.TargetID != "" {
			target, err := resolveParticipant(step.TargetID, flow, dia, model)
			if err != nil {
				return nil, err
			}
			seq.addParticipant(target)
			interaction.TargetID = target.ID
		}

		seq.Interactions = append(seq.Interactions, interaction)
	}
	return seq, nil
}

// resolveParticipant maps a diagram object id to its participant via
// the model object that backs it.
func resolveParticipant(objectID string, flow *icepanel.Flow, dia *icepanel.Diagram, model map[string]icepanel.ModelObject) (Participant, error) {
	obj, ok := dia.Objects[objectID]
	if !ok {
		return Participant{}, errors.New(errors.ErrCodeDanglingReference,
			"flow %q references object %s which is not on diagram %s", flow.Name, objectID, dia.ID)
	}

	mo, ok := model[obj.ModelID]
	if !ok {
		return Participant{}, errors.New(errors.ErrCodeDanglingReference,
			"object %s on diagram %s references unknown model object %s", objectID, dia.ID, obj.ModelID)
	}

	return Participant{ID: mo.ID, Name: mo.Name}, nil
}

// GraphOptions controls full-diagram normalization.
type GraphOptions struct {
	// Flatten collapses containment into a single namespace using
	// "parent / child" display names instead of nested groupings.
	Flatten bool
}

// BuildGraph normalizes a full diagram into a Graph. Every diagram
// object becomes a node; model-backed objects take their model
// object's display name, pure groups fall back to their own name.
// Containment is preserved as ParentID nesting unless opts.Flatten is
// set.
//
// conns is the landscape's model connections, consulted only when the
// diagram itself reports no connections: connections whose two model
// endpoints are both placed on the diagram are kept and mapped back to
// diagram object ids.
func BuildGraph(dia *icepanel.Diagram, model map[string]icepanel.ModelObject, conns []icepanel.ModelConnection, opts GraphOptions) (*Graph, error) {
	ids := make([]string, 0, len(dia.Objects))
	for id := range dia.Objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := &Graph{Name: dia.Name}
	modelToObject := modelToObjectLookup(dia, ids)

	for _, id := range ids {
		obj := dia.Objects[id]
		g.Nodes = append(g.Nodes, Node{
			ID:       id,
			Name:     nodeName(obj, model),
			ParentID: resolveParent(obj, dia, model, modelToObject),
		})
	}

	if opts.Flatten {
		flatten(g)
	}

	links := dia.Links()
	if len(links) == 0 && len(conns) > 0 {
		links = deduceLinks(dia, conns, modelToObject)
	}

	for _, link := range links {
		source, target := link.Source(), link.TargetID
		if _, ok := dia.Objects[source]; !ok {
			return nil, errors.New(errors.ErrCodeDanglingReference,
				"connection %s on diagram %s references unknown object %s", link.ID, dia.ID, source)
		}
		if _, ok := dia.Objects[target]; !ok {
			return nil, errors.New(errors.ErrCodeDanglingReference,
				"connection %s on diagram %s references unknown object %s", link.ID, dia.ID, target)
		}
		g.Links = append(g.Links, Link{SourceID: source, TargetID: target, Label: link.Text()})
	}

	return g, nil
}

// nodeName resolves the display name of a diagram object. Model-backed
// objects use the model object's name; unnamed groups become "Group".
func nodeName(obj icepanel.DiagramObject, model map[string]icepanel.ModelObject) string {
	if obj.ModelID != "" {
		if mo, ok := model[obj.ModelID]; ok && mo.Name != "" {
			return mo.Name
		}
	}
	if obj.Name != "" {
		return obj.Name
	}
	return "Group"
}

// resolveParent returns the parent diagram object id of obj. The
// diagram's own parentId wins; model-backed objects whose model object
// has a structural parent placed on the diagram fall back to that.
func resolveParent(obj icepanel.DiagramObject, dia *icepanel.Diagram, model map[string]icepanel.ModelObject, modelToObject map[string]string) string {
	if obj.ParentID != "" {
		if _, ok := dia.Objects[obj.ParentID]; ok {
			return obj.ParentID
		}
		return ""
	}
	if obj.ModelID == "" {
		return ""
	}
	mo, ok := model[obj.ModelID]
	if !ok || mo.ParentID == "" {
		return ""
	}
	return modelToObject[mo.ParentID]
}

// modelToObjectLookup builds the full model id → diagram object id map
// up front so parent fallback does not depend on iteration order.
func modelToObjectLookup(dia *icepanel.Diagram, ids []string) map[string]string {
	lookup := make(map[string]string, len(ids))
	for _, id := range ids {
		if modelID := dia.Objects[id].ModelID; modelID != "" {
			if _, seen := lookup[modelID]; !seen {
				lookup[modelID] = id
			}
		}
	}
	return lookup
}

// flatten rewrites nested node names to "parent / child" chains and
// clears all parent references.
func flatten(g *Graph) {
	names := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		names[n.ID] = n.Name
	}

	for i, n := range g.Nodes {
		parts := []string{n.Name}
		seen := map[string]bool{n.ID: true}
		for parent := n.ParentID; parent != "" && !seen[parent]; {
			seen[parent] = true
			parts = append([]string{names[parent]}, parts...)
			p, ok := g.NodeByID(parent)
			if !ok {
				break
			}
			parent = p.ParentID
		}
		g.Nodes[i].Name = strings.Join(parts, " / ")
		g.Nodes[i].ParentID = ""
	}
}

// deduceLinks recovers connections from the model layer for diagrams
// that report none of their own. A model connection is kept when both
// endpoints are placed on the diagram.
func deduceLinks(dia *icepanel.Diagram, conns []icepanel.ModelConnection, modelToObject map[string]string) []icepanel.DiagramConnection {
	var links []icepanel.DiagramConnection
	for _, conn := range conns {
		source, sourceOK := modelToObject[conn.Source()]
		target, targetOK := modelToObject[conn.TargetID]
		if !sourceOK || !targetOK {
			continue
		}
		links = append(links, icepanel.DiagramConnection{
			ID:       conn.ID,
			OriginID: source,
			TargetID: target,
			Name:     conn.Name,
			ModelID:  conn.ID,
		})
	}
	return links
}
