package icepanel

// Raw structures returned by the IcePanel API. Field sets are limited
// to what the exporter consumes; unknown fields are ignored on decode.

// FlowListing is one entry of the landscape's flow index.
type FlowListing struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Flow is the full structure of a single flow.
type Flow struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	DiagramID string              `json:"diagramId"`
	Steps     map[string]FlowStep `json:"steps"`
}

// FlowStep is one step of a flow, keyed by step id in Flow.Steps.
// Index carries the explicit emission order. TargetID is empty for
// self-directed steps (notes).
type FlowStep struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	Type        string `json:"type"`
	Description string `json:"description"`
	OriginID    string `json:"originId"`
	TargetID    string `json:"targetId"`
}

// DiagramListing is one entry of the landscape's diagram index.
type DiagramListing struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Diagram is the full structure of a single diagram. Objects maps
// diagram object id to object. The API has reported connections under
// both "connections" and "relationships" across versions; both are
// decoded and merged by Links.
type Diagram struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Objects       map[string]DiagramObject `json:"objects"`
	Connections   []DiagramConnection      `json:"connections"`
	Relationships []DiagramConnection      `json:"relationships"`
}

// Links returns the diagram's connections regardless of which field
// the API populated.
func (d *Diagram) Links() []DiagramConnection {
	if len(d.Connections) > 0 {
		return d.Connections
	}
	return d.Relationships
}

// DiagramObject is a node placed on a diagram. ModelID links it to the
// model object carrying the display name; objects without a ModelID
// are pure groups. ParentID nests it inside another diagram object.
type DiagramObject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ModelID  string `json:"modelId"`
	ParentID string `json:"parentId"`
}

// DiagramConnection is a directed edge between two diagram objects.
// Older API versions used sourceId instead of originId; Source covers
// both.
type DiagramConnection struct {
	ID       string `json:"id"`
	OriginID string `json:"originId"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	ModelID  string `json:"modelId"`
}

// Source returns the connection's origin object id.
func (c DiagramConnection) Source() string {
	if c.OriginID != "" {
		return c.OriginID
	}
	return c.SourceID
}

// Text returns the connection's label text, preferring an explicit
// label over the connection name.
func (c DiagramConnection) Text() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

// ModelObject is an actor/system/component in the landscape model.
type ModelObject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId"`
}

// ModelConnection is a model-level edge. Diagrams lists the diagram ids
// the connection is placed on.
type ModelConnection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	OriginID string         `json:"originId"`
	SourceID string         `json:"sourceId"`
	TargetID string         `json:"targetId"`
	Diagrams map[string]any `json:"diagrams"`
}

// Source returns the connection's origin model id.
func (c ModelConnection) Source() string {
	if c.OriginID != "" {
		return c.OriginID
	}
	return c.SourceID
}
