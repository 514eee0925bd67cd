// Package architex holds the shared model of the Architex canvas: nodes,
// edges, history snapshots, the persisted canvas state and the mirrored
// backend resources (projects and generation jobs).
package architex

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData is the payload rendered inside a node box.
type NodeData struct {
	Label       string            `json:"label" yaml:"label"`
	ComponentID string            `json:"componentId" yaml:"componentId"`
	Category    string            `json:"category" yaml:"category"`
	Icon        string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Color       string            `json:"color,omitempty" yaml:"color,omitempty"`
	Config      map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

// Node represents one architecture component placed on the canvas.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Type     string   `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
	Width    float64  `json:"width,omitempty" yaml:"width,omitempty"`
	Height   float64  `json:"height,omitempty" yaml:"height,omitempty"`
	Selected bool     `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	if n.Data.Config != nil {
		cfg := make(map[string]string, len(n.Data.Config))
		for k, v := range n.Data.Config {
			cfg[k] = v
		}
		n.Data.Config = cfg
	}
	return n
}

// Edge represents a dependency or data flow between two nodes.
// Handles are optional and name the connection point on each node.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Selected     bool   `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Connects reports whether the edge joins a and b in either direction.
func (e Edge) Connects(a, b string) bool {
	return (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a)
}

// Touches reports whether the edge has nodeID as one of its endpoints.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Connection is the payload of a connect gesture, before it becomes an edge.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Snapshot is a full copy of the graph kept for undo/redo.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewSnapshot deep-copies nodes and edges into a snapshot.
func NewSnapshot(nodes []Node, edges []Edge) Snapshot {
	return Snapshot{Nodes: CloneNodes(nodes), Edges: CloneEdges(edges)}
}

// State is the persisted canvas record. Its JSON form is the single value
// kept under the canvas storage key.
type State struct {
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
	ProjectName string `json:"projectName"`
	ProjectID   string `json:"projectId"`
	Prompt      string `json:"prompt"`
	UpdatedAt   int64  `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	s.Nodes = CloneNodes(s.Nodes)
	s.Edges = CloneEdges(s.Edges)
	return s
}

// CloneNodes deep-copies a node slice. The result is never nil.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// CloneEdges copies an edge slice. The result is never nil.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}
