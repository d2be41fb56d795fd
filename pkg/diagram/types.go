// Package diagram defines the normalized diagram model and the
// normalizer that builds it from raw IcePanel structures.
//
// The normalized model is what the Mermaid emitter consumes: typed
// participants and interactions for flows, nodes and links for full
// diagrams. Normalization resolves every reference against the
// participant set up front; a reference that does not resolve is a
// data error (DANGLING_REFERENCE), never a silent drop.
package diagram

// Participant is an actor, system, or component taking part in a
// sequence. ID is the stable model object id from the source API; Name
// is the display name, which need not be unique.
type Participant struct {
	ID   string
	Name string
}

// Interaction is one directed step between two participants. TargetID
// is empty for self-directed steps, which render as a note back to the
// source. Type carries the source step type (e.g. "reply").
type Interaction struct {
	ID          string
	Type        string
	Description string
	SourceID    string
	TargetID    string
}

// Sequence is a normalized flow: participants in first-appearance
// order and interactions in emission order.
type Sequence struct {
	Name         string
	Participants []Participant
	Interactions []Interaction
}

// addParticipant records p unless a participant with the same id is
// already present, preserving first-appearance order.
func (s *Sequence) addParticipant(p Participant) {
	for _, existing := range s.Participants {
		if existing.ID == p.ID {
			return
		}
	}
	s.Participants = append(s.Participants, p)
}

// Node is one box of a full diagram. ParentID nests it inside another
// node; empty ParentID marks a root.
type Node struct {
	ID       string
	Name     string
	ParentID string
}

// Link is a directed edge between two diagram nodes.
type Link struct {
	SourceID string
	TargetID string
	Label    string
}

// Graph is a normalized full diagram: nodes in deterministic order and
// links in source order.
type Graph struct {
	Name  string
	Nodes []Node
	Links []Link
}

// Roots returns the ids of nodes without a parent, in node order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, n := range g.Nodes {
		if n.ParentID == "" {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Children returns a map from parent id to child ids, in node order.
func (g *Graph) Children() map[string][]string {
	children := make(map[string][]string)
	for _, n := range g.Nodes {
		if n.ParentID != "" {
			children[n.ParentID] = append(children[n.ParentID], n.ID)
		}
	}
	return children
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
