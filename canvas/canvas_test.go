package canvas

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func node(id string) architex.Node {
	return architex.Node{ID: id, Type: NodeType, Data: architex.NodeData{Label: id, ComponentID: id}}
}

func connect(a, b string) architex.Connection {
	return architex.Connection{Source: a, Target: b}
}

func assertNoDanglingEdges(t *testing.T, c *Canvas) {
	t.Helper()
	ids := make(map[string]bool)
	for _, n := range c.Nodes() {
		ids[n.ID] = true
	}
	for _, e := range c.Edges() {
		assert.True(t, ids[e.Source], "edge %s has dangling source %s", e.ID, e.Source)
		assert.True(t, ids[e.Target], "edge %s has dangling target %s", e.ID, e.Target)
	}
}

func TestAddNodePushesHistory(t *testing.T) {
	c := New()
	assert.Equal(t, 1, c.HistoryLen())

	n, ok := c.AddNode(node("a"))
	require.True(t, ok)
	assert.Equal(t, "a", n.ID)
	assert.Equal(t, 2, c.HistoryLen())
	assert.True(t, c.CanUndo())

	_, ok = c.AddNode(node("a"))
	assert.False(t, ok, "duplicate id must be ignored")
	assert.Len(t, c.Nodes(), 1)
}

func TestAddNodeGeneratesID(t *testing.T) {
	c := New(WithClock(fixedClock(1700000000000)))
	n, ok := c.AddNode(architex.Node{Data: architex.NodeData{ComponentID: "redis"}})
	require.True(t, ok)
	assert.Equal(t, "redis-1700000000000", n.ID)

	n, ok = c.AddNode(architex.Node{Data: architex.NodeData{ComponentID: "redis"}})
	require.True(t, ok)
	assert.Equal(t, "redis-1700000000000-1", n.ID)
}

func TestDeleteNodeCascadesEdges(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	c.AddNode(node("b"))
	c.AddNode(node("c"))
	c.OnConnect(connect("a", "b"))
	c.OnConnect(connect("b", "c"))
	c.OnConnect(connect("a", "c"))
	require.Len(t, c.Edges(), 3)

	require.True(t, c.DeleteNode("b"))
	edges := c.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Source)
	assert.Equal(t, "c", edges[0].Target)
	assertNoDanglingEdges(t, c)

	assert.False(t, c.DeleteNode("missing"))
}

func TestOnConnectRejectsSelfLoopsAndDuplicates(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	c.AddNode(node("b"))
	before := c.HistoryLen()

	_, ok := c.OnConnect(connect("a", "a"))
	assert.False(t, ok)

	e, ok := c.OnConnect(connect("a", "b"))
	require.True(t, ok)
	assert.Equal(t, "edge-a-b", e.ID)

	_, ok = c.OnConnect(connect("b", "a"))
	assert.False(t, ok)
	_, ok = c.OnConnect(architex.Connection{Source: "a", Target: "b", SourceHandle: "right"})
	assert.False(t, ok)

	_, ok = c.OnConnect(connect("a", "ghost"))
	assert.False(t, ok)

	assert.Len(t, c.Edges(), 1)
	assert.Equal(t, before+1, c.HistoryLen(), "only the accepted connection snapshots")
}

func TestUndoRestoresPriorStateByValue(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	c.AddNode(node("b"))
	c.OnConnect(connect("a", "b"))

	prevNodes, prevEdges := c.Nodes(), c.Edges()
	c.AddNode(node("c"))

	require.True(t, c.Undo())
	assert.Equal(t, prevNodes, c.Nodes())
	assert.Equal(t, prevEdges, c.Edges())
}

func TestRedoAfterUndoRestores(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	c.AddNode(node("b"))
	c.OnConnect(connect("a", "b"))
	c.DeleteNode("a")

	wantNodes, wantEdges := c.Nodes(), c.Edges()
	require.True(t, c.Undo())
	assert.Len(t, c.Edges(), 1)
	require.True(t, c.Redo())
	assert.Equal(t, wantNodes, c.Nodes())
	assert.Equal(t, wantEdges, c.Edges())
	assert.False(t, c.Redo())
}

func TestUndoToEmptyCanvas(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	require.True(t, c.Undo())
	assert.Equal(t, []architex.Node{}, c.Nodes())
	assert.Equal(t, []architex.Edge{}, c.Edges())
	assert.False(t, c.Undo())
}

func TestHistoryNeverExceedsLimit(t *testing.T) {
	c := New()
	for i := 0; i < 120; i++ {
		c.AddNode(node(fmt.Sprintf("n%d", i)))
		require.LessOrEqual(t, c.HistoryLen(), DefaultHistoryLimit)
	}
	assert.Equal(t, DefaultHistoryLimit, c.HistoryLen())
}

func TestDropCreatesNodeFromPalette(t *testing.T) {
	c := New(WithClock(fixedClock(42)))
	n, ok := c.Drop("postgresql", architex.Position{X: 10, Y: 20})
	require.True(t, ok)
	assert.Equal(t, "postgresql-42", n.ID)
	assert.Equal(t, NodeType, n.Type)
	assert.Equal(t, "PostgreSQL", n.Data.Label)
	assert.Equal(t, CategoryDatabase, n.Data.Category)
	assert.Equal(t, architex.Position{X: 10, Y: 20}, n.Position)
	assert.Equal(t, 2, c.HistoryLen())
}

func TestDropIgnoresMalformedPayload(t *testing.T) {
	c := New()
	for _, payload := range []string{"", "   ", "not-a-component"} {
		_, ok := c.Drop(payload, architex.Position{})
		assert.False(t, ok)
	}
	assert.Empty(t, c.Nodes())
	assert.Equal(t, 1, c.HistoryLen())
}

func TestUpdateNodeData(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	label := "Primary DB"
	n, ok := c.UpdateNodeData("a", NodeDataPatch{Label: &label, Config: map[string]string{"version": "16"}})
	require.True(t, ok)
	assert.Equal(t, "Primary DB", n.Data.Label)
	assert.Equal(t, "16", n.Data.Config["version"])

	n, ok = c.UpdateNodeData("a", NodeDataPatch{Config: map[string]string{"version": ""}})
	require.True(t, ok)
	assert.NotContains(t, n.Data.Config, "version")

	_, ok = c.UpdateNodeData("missing", NodeDataPatch{Label: &label})
	assert.False(t, ok)

	require.True(t, c.Undo())
	assert.Equal(t, "16", c.Nodes()[0].Data.Config["version"])
}

func TestClearIsUndoable(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	c.AddNode(node("b"))
	c.OnConnect(connect("a", "b"))
	c.SetPrompt("keep me")

	c.Clear()
	assert.Empty(t, c.Nodes())
	assert.Empty(t, c.Edges())
	assert.Equal(t, "keep me", c.State().Prompt)

	require.True(t, c.Undo())
	assert.Len(t, c.Nodes(), 2)
	assert.Len(t, c.Edges(), 1)
}

func TestLoadResetsHistoryAndDropsInvalidEdges(t *testing.T) {
	c := New()
	c.AddNode(node("x"))

	c.Load(architex.State{
		Nodes: []architex.Node{node("a"), node("b"), node("a")},
		Edges: []architex.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
			{ID: "e3", Source: "a", Target: "a"},
			{ID: "e4", Source: "a", Target: "ghost"},
		},
		ProjectName: "demo",
		ProjectID:   "65a1f0c2b3d4e5f601234567",
		Prompt:      "build it",
	})

	assert.Len(t, c.Nodes(), 2)
	require.Len(t, c.Edges(), 1)
	assert.Equal(t, "e1", c.Edges()[0].ID)
	assert.Equal(t, 1, c.HistoryLen())
	assert.False(t, c.CanUndo())

	s := c.State()
	assert.Equal(t, "demo", s.ProjectName)
	assert.Equal(t, "65a1f0c2b3d4e5f601234567", s.ProjectID)
	assert.Equal(t, "build it", s.Prompt)
}

func TestStateIsACopy(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	s := c.State()
	s.Nodes[0].ID = "mutated"
	assert.Equal(t, "a", c.Nodes()[0].ID)
}

func TestSpec(t *testing.T) {
	c := New()
	c.AddNode(node("a"))
	c.AddNode(node("b"))
	c.OnConnect(connect("a", "b"))
	c.SetProjectName("shop")
	c.SetProjectID("65a1f0c2b3d4e5f601234567")
	c.SetPrompt("an online shop")

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	spec := c.Spec(now)
	assert.Len(t, spec.Nodes, 2)
	assert.Len(t, spec.Edges, 1)
	assert.Equal(t, "an online shop", spec.Prompt)
	assert.Equal(t, "shop", spec.Metadata.ProjectName)
	assert.Equal(t, now, spec.Metadata.GeneratedAt)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := New()
	ids := []string{"a", "b", "c", "d", "e", "f"}

	for i := 0; i < 2000; i++ {
		id := ids[rng.Intn(len(ids))]
		other := ids[rng.Intn(len(ids))]
		switch rng.Intn(6) {
		case 0:
			c.AddNode(node(id))
		case 1:
			c.DeleteNode(id)
		case 2:
			c.OnConnect(connect(id, other))
		case 3:
			c.OnNodesChange([]NodeChange{{Type: ChangeRemove, ID: id}})
		case 4:
			c.Undo()
		case 5:
			c.Redo()
		}

		assertNoDanglingEdges(t, c)
		require.LessOrEqual(t, c.HistoryLen(), DefaultHistoryLimit)

		seen := make(map[[2]string]bool)
		for _, e := range c.Edges() {
			require.NotEqual(t, e.Source, e.Target)
			key := [2]string{e.Source, e.Target}
			if e.Source > e.Target {
				key = [2]string{e.Target, e.Source}
			}
			require.False(t, seen[key], "duplicate undirected edge %v", key)
			seen[key] = true
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				c.AddNode(node(id))
				if i > 0 {
					c.OnConnect(connect(fmt.Sprintf("w%d-%d", w, i-1), id))
				}
				_ = c.State()
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, c.Nodes(), 400)
	assert.Len(t, c.Edges(), 392)
	assertNoDanglingEdges(t, c)
}

func TestOnConnectKeepsEdgeIDsUnique(t *testing.T) {
	c := New()
	for _, id := range []string{"a", "b-c", "a-b", "c"} {
		c.AddNode(node(id))
	}

	first, ok := c.OnConnect(connect("a", "b-c"))
	require.True(t, ok)
	second, ok := c.OnConnect(connect("a-b", "c"))
	require.True(t, ok)
	assert.Equal(t, "edge-a-b-c", first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	reloaded := FromState(c.State())
	assert.Equal(t, c.Edges(), reloaded.Edges())

	c.OnEdgesChange([]EdgeChange{{Type: ChangeRemove, ID: second.ID}})
	edges := c.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Source)
	assert.Equal(t, "b-c", edges[0].Target)
}
