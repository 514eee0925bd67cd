// Package canvas is the in-memory store behind the architecture editor.
//
// A Canvas owns the node and edge lists of one diagram plus a bounded
// history of full snapshots. Structural edits (adding or removing nodes or
// edges) push a snapshot; moves, resizes and selection do not. Every
// operation is infallible: gestures that would break the graph invariants
// (self loops, a second edge between the same pair, edges to unknown
// nodes) are dropped without an error.
package canvas

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/meikuraledutech/architex"
)

// NodeType is the view type assigned to nodes dropped from the palette.
const NodeType = "component"

// Canvas is safe for concurrent use.
type Canvas struct {
	mu          sync.RWMutex
	nodes       []architex.Node
	edges       []architex.Edge
	projectName string
	projectID   string
	prompt      string
	history     *History

	palette      *Palette
	now          func() time.Time
	historyLimit int
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithClock replaces time.Now for node id generation.
func WithClock(now func() time.Time) Option {
	return func(c *Canvas) { c.now = now }
}

// WithPalette sets the catalog used to resolve drops.
func WithPalette(p *Palette) Option {
	return func(c *Canvas) { c.palette = p }
}

// WithHistoryLimit overrides DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(c *Canvas) { c.historyLimit = n }
}

// New returns an empty canvas.
func New(opts ...Option) *Canvas {
	c := &Canvas{
		nodes:        []architex.Node{},
		edges:        []architex.Edge{},
		palette:      DefaultPalette(),
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.history = NewHistory(architex.Snapshot{}, c.historyLimit)
	return c
}

// FromState returns a canvas holding s with a fresh history.
func FromState(s architex.State, opts ...Option) *Canvas {
	c := New(opts...)
	c.Load(s)
	return c
}

// Palette returns the catalog the canvas resolves drops against.
func (c *Canvas) Palette() *Palette {
	return c.palette
}

// AddNode appends n and records a snapshot. A node without an id gets one
// derived from its component id; a node whose id is already taken is
// ignored.
func (c *Canvas) AddNode(n architex.Node) (architex.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n = n.Clone()
	if n.ID == "" {
		n.ID = c.newNodeIDLocked(n.Data.ComponentID)
	}
	if c.nodeIndexLocked(n.ID) >= 0 {
		return architex.Node{}, false
	}
	c.nodes = append(c.nodes, n)
	c.pushLocked()
	return n.Clone(), true
}

// Drop creates a node for the palette component named by payload at pos.
// Empty or unknown payloads are ignored.
func (c *Canvas) Drop(payload string, pos architex.Position) (architex.Node, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" || c.palette == nil {
		return architex.Node{}, false
	}
	comp, ok := c.palette.Lookup(payload)
	if !ok {
		return architex.Node{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := architex.Node{
		ID:       c.newNodeIDLocked(comp.ID),
		Type:     NodeType,
		Position: pos,
		Data:     comp.NodeData(),
	}
	c.nodes = append(c.nodes, n)
	c.pushLocked()
	return n.Clone(), true
}

// DeleteNode removes the node and every edge attached to it.
func (c *Canvas) DeleteNode(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.nodeIndexLocked(id)
	if i < 0 {
		return false
	}
	c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
	c.edges = withoutEdgesTouching(c.edges, map[string]bool{id: true})
	c.pushLocked()
	return true
}

// NodeDataPatch updates selected fields of a node's data. Config entries
// are merged; an empty value deletes the key.
type NodeDataPatch struct {
	Label  *string           `json:"label,omitempty"`
	Icon   *string           `json:"icon,omitempty"`
	Color  *string           `json:"color,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

// UpdateNodeData applies patch to the node and records a snapshot.
func (c *Canvas) UpdateNodeData(id string, patch NodeDataPatch) (architex.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.nodeIndexLocked(id)
	if i < 0 {
		return architex.Node{}, false
	}
	n := c.nodes[i].Clone()
	if patch.Label != nil {
		n.Data.Label = *patch.Label
	}
	if patch.Icon != nil {
		n.Data.Icon = *patch.Icon
	}
	if patch.Color != nil {
		n.Data.Color = *patch.Color
	}
	for k, v := range patch.Config {
		if n.Data.Config == nil {
			n.Data.Config = make(map[string]string)
		}
		if v == "" {
			delete(n.Data.Config, k)
			continue
		}
		n.Data.Config[k] = v
	}
	c.nodes[i] = n
	c.pushLocked()
	return n.Clone(), true
}

// OnConnect turns a connect gesture into an edge.
func (c *Canvas) OnConnect(conn architex.Connection) (architex.Edge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := architex.Edge{
		ID:           c.newEdgeIDLocked(conn),
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
	}
	if !c.acceptEdgeLocked(e, c.edges) {
		return architex.Edge{}, false
	}
	c.edges = append(c.edges, e)
	c.pushLocked()
	return e, true
}

// OnNodesChange applies a batch of node deltas. Removing a node removes
// its edges. A snapshot is recorded only when the batch adds or removes.
func (c *Canvas) OnNodesChange(changes []NodeChange) {
	if len(changes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	nodes, removed := applyNodeChanges(changes, c.nodes)
	c.nodes = nodes
	if len(removed) > 0 {
		c.edges = withoutEdgesTouching(c.edges, removed)
	}
	if structuralNodeBatch(changes) {
		c.pushLocked()
	}
}

// OnEdgesChange applies a batch of edge deltas. Added edges go through
// the same checks as OnConnect.
func (c *Canvas) OnEdgesChange(changes []EdgeChange) {
	if len(changes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.edges = applyEdgeChanges(changes, c.edges, c.acceptEdgeLocked)
	if structuralEdgeBatch(changes) {
		c.pushLocked()
	}
}

// Undo restores the previous snapshot. It reports false at the oldest entry.
func (c *Canvas) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.history.Undo()
	if !ok {
		return false
	}
	c.nodes, c.edges = s.Nodes, s.Edges
	return true
}

// Redo reapplies the next snapshot. It reports false at the newest entry.
func (c *Canvas) Redo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.history.Redo()
	if !ok {
		return false
	}
	c.nodes, c.edges = s.Nodes, s.Edges
	return true
}

// Clear empties the diagram. It can be undone.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes = []architex.Node{}
	c.edges = []architex.Edge{}
	c.pushLocked()
}

// Load replaces the whole canvas with s and restarts the history from it.
// Edges that break the graph invariants are dropped on the way in.
func (c *Canvas) Load(s architex.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes = []architex.Node{}
	seen := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		c.nodes = append(c.nodes, n.Clone())
	}
	c.edges = []architex.Edge{}
	seenEdges := make(map[string]bool, len(s.Edges))
	for _, e := range s.Edges {
		if e.ID == "" || seenEdges[e.ID] || !c.acceptEdgeLocked(e, c.edges) {
			continue
		}
		seenEdges[e.ID] = true
		c.edges = append(c.edges, e)
	}
	c.projectName = s.ProjectName
	c.projectID = s.ProjectID
	c.prompt = s.Prompt
	c.history.Reset(architex.Snapshot{Nodes: c.nodes, Edges: c.edges})
}

func (c *Canvas) SetProjectName(name string) {
	c.mu.Lock()
	c.projectName = name
	c.mu.Unlock()
}

func (c *Canvas) SetProjectID(id string) {
	c.mu.Lock()
	c.projectID = id
	c.mu.Unlock()
}

func (c *Canvas) SetPrompt(prompt string) {
	c.mu.Lock()
	c.prompt = prompt
	c.mu.Unlock()
}

// State returns a deep copy of the persistable canvas contents.
func (c *Canvas) State() architex.State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return architex.State{
		Nodes:       architex.CloneNodes(c.nodes),
		Edges:       architex.CloneEdges(c.edges),
		ProjectName: c.projectName,
		ProjectID:   c.projectID,
		Prompt:      c.prompt,
	}
}

// Nodes returns a copy of the node list.
func (c *Canvas) Nodes() []architex.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return architex.CloneNodes(c.nodes)
}

// Edges returns a copy of the edge list.
func (c *Canvas) Edges() []architex.Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return architex.CloneEdges(c.edges)
}

// Spec serializes the canvas into the payload of a generation job.
func (c *Canvas) Spec(now time.Time) architex.ArchitectureSpec {
	return architex.NewArchitectureSpec(c.State(), now)
}

func (c *Canvas) CanUndo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.CanUndo()
}

func (c *Canvas) CanRedo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.CanRedo()
}

// HistoryLen is the number of snapshots currently kept.
func (c *Canvas) HistoryLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.Len()
}

func (c *Canvas) pushLocked() {
	c.history.Push(architex.Snapshot{Nodes: c.nodes, Edges: c.edges})
}

func (c *Canvas) nodeIndexLocked(id string) int {
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// acceptEdgeLocked enforces the edge invariants against existing.
func (c *Canvas) acceptEdgeLocked(e architex.Edge, existing []architex.Edge) bool {
	if e.Source == "" || e.Target == "" || e.Source == e.Target {
		return false
	}
	if c.nodeIndexLocked(e.Source) < 0 || c.nodeIndexLocked(e.Target) < 0 {
		return false
	}
	for _, x := range existing {
		if x.Connects(e.Source, e.Target) {
			return false
		}
	}
	return true
}

// newNodeIDLocked derives "<componentId>-<unix millis>", suffixed when two
// nodes are created within the same millisecond.
func (c *Canvas) newNodeIDLocked(componentID string) string {
	if componentID == "" {
		componentID = "node"
	}
	base := fmt.Sprintf("%s-%d", componentID, c.now().UnixMilli())
	id := base
	for n := 1; c.nodeIndexLocked(id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func edgeID(conn architex.Connection) string {
	return fmt.Sprintf("edge-%s%s-%s%s", conn.Source, conn.SourceHandle, conn.Target, conn.TargetHandle)
}

// newEdgeIDLocked suffixes the derived id when another connection already
// produced the same string (source "a", target "b-c" and source "a-b",
// target "c" both give "edge-a-b-c").
func (c *Canvas) newEdgeIDLocked(conn architex.Connection) string {
	base := edgeID(conn)
	id := base
	for n := 1; c.edgeIndexLocked(id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func (c *Canvas) edgeIndexLocked(id string) int {
	for i := range c.edges {
		if c.edges[i].ID == id {
			return i
		}
	}
	return -1
}

func withoutEdgesTouching(edges []architex.Edge, ids map[string]bool) []architex.Edge {
	out := edges[:0]
	for _, e := range edges {
		if ids[e.Source] || ids[e.Target] {
			continue
		}
		out = append(out, e)
	}
	return out
}
