package canvas

import "github.com/meikuraledutech/architex"

// ChangeType names the kind of delta a graph view reports.
type ChangeType string

const (
	ChangePosition   ChangeType = "position"
	ChangeDimensions ChangeType = "dimensions"
	ChangeSelect     ChangeType = "select"
	ChangeRemove     ChangeType = "remove"
	ChangeAdd        ChangeType = "add"
	ChangeReplace    ChangeType = "replace"
)

// Dimensions is the measured size of a rendered node.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeChange is one delta in a node change batch.
type NodeChange struct {
	Type       ChangeType         `json:"type"`
	ID         string             `json:"id,omitempty"`
	Position   *architex.Position `json:"position,omitempty"`
	Dragging   bool               `json:"dragging,omitempty"`
	Dimensions *Dimensions        `json:"dimensions,omitempty"`
	Selected   bool               `json:"selected,omitempty"`
	Item       *architex.Node     `json:"item,omitempty"`
}

// EdgeChange is one delta in an edge change batch.
type EdgeChange struct {
	Type     ChangeType     `json:"type"`
	ID       string         `json:"id,omitempty"`
	Selected bool           `json:"selected,omitempty"`
	Item     *architex.Edge `json:"item,omitempty"`
}

func structuralNodeBatch(changes []NodeChange) bool {
	for _, c := range changes {
		if c.Type == ChangeAdd || c.Type == ChangeRemove {
			return true
		}
	}
	return false
}

func structuralEdgeBatch(changes []EdgeChange) bool {
	for _, c := range changes {
		if c.Type == ChangeAdd || c.Type == ChangeRemove {
			return true
		}
	}
	return false
}

// applyNodeChanges returns the node list after the batch and the ids of
// nodes it removed. Changes naming unknown ids are skipped, as are adds
// that would duplicate an existing id.
func applyNodeChanges(changes []NodeChange, nodes []architex.Node) ([]architex.Node, map[string]bool) {
	removed := make(map[string]bool)
	out := architex.CloneNodes(nodes)

	index := func(id string) int {
		for i := range out {
			if out[i].ID == id {
				return i
			}
		}
		return -1
	}

	for _, c := range changes {
		switch c.Type {
		case ChangeAdd:
			if c.Item == nil || c.Item.ID == "" || index(c.Item.ID) >= 0 {
				continue
			}
			out = append(out, c.Item.Clone())
			delete(removed, c.Item.ID)
		case ChangeRemove:
			if i := index(c.ID); i >= 0 {
				out = append(out[:i], out[i+1:]...)
				removed[c.ID] = true
			}
		case ChangeReplace:
			if c.Item == nil {
				continue
			}
			if i := index(c.ID); i >= 0 {
				n := c.Item.Clone()
				n.ID = c.ID
				out[i] = n
			}
		case ChangePosition:
			if i := index(c.ID); i >= 0 && c.Position != nil {
				out[i].Position = *c.Position
			}
		case ChangeDimensions:
			if i := index(c.ID); i >= 0 && c.Dimensions != nil {
				out[i].Width = c.Dimensions.Width
				out[i].Height = c.Dimensions.Height
			}
		case ChangeSelect:
			if i := index(c.ID); i >= 0 {
				out[i].Selected = c.Selected
			}
		}
	}
	return out, removed
}

// applyEdgeChanges returns the edge list after the batch. accept decides
// whether an added edge may join the list given the edges so far.
func applyEdgeChanges(changes []EdgeChange, edges []architex.Edge, accept func(architex.Edge, []architex.Edge) bool) []architex.Edge {
	out := architex.CloneEdges(edges)

	index := func(id string) int {
		for i := range out {
			if out[i].ID == id {
				return i
			}
		}
		return -1
	}

	for _, c := range changes {
		switch c.Type {
		case ChangeAdd:
			if c.Item == nil || c.Item.ID == "" || index(c.Item.ID) >= 0 {
				continue
			}
			if accept(*c.Item, out) {
				out = append(out, *c.Item)
			}
		case ChangeRemove:
			if i := index(c.ID); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		case ChangeReplace:
			if c.Item == nil {
				continue
			}
			if i := index(c.ID); i >= 0 {
				rest := append(append([]architex.Edge(nil), out[:i]...), out[i+1:]...)
				e := *c.Item
				e.ID = c.ID
				if accept(e, rest) {
					out[i] = e
				}
			}
		case ChangeSelect:
			if i := index(c.ID); i >= 0 {
				out[i].Selected = c.Selected
			}
		}
	}
	return out
}
