package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Topic string   `json:"topic"`
	Notes string   `json:"notes"`
	Count int      `json:"count"`
	Items []string `json:"items"`
	Route string   `json:"route"`
}

func returns(update Update) NodeFunc[testState] {
	return func(_ context.Context, _ testState) (Update, error) {
		return update, nil
	}
}

func routeField(_ context.Context, s testState) string {
	return s.Route
}

func TestBuilder_ValidGraph(t *testing.T) {
	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "first", returns(nil)))
	require.NoError(t, b.AddNode("b", "second", returns(nil)))
	require.NoError(t, b.AddEdge("a", "b"))
	require.NoError(t, b.AddEdge("b", END))
	b.SetEntryPoint("a")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "a", g.EntryPoint())
	assert.Equal(t, DefaultMaxSteps, g.MaxSteps())
	require.Len(t, g.Nodes(), 2)
	assert.Equal(t, "a", g.Nodes()[0].Name)
	assert.Equal(t, "second", g.Nodes()[1].Description)
	require.Len(t, g.Edges(), 2)
	assert.Equal(t, "b", g.Edges()[0].To)
	assert.Nil(t, g.Tracer())
}

func TestBuilder_CollectsAllProblems(t *testing.T) {
	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(nil)))
	assert.Error(t, b.AddNode("a", "", returns(nil)))
	require.NoError(t, b.AddNode("b", "", returns(nil)))
	require.NoError(t, b.AddNode("c", "", returns(nil)))
	require.NoError(t, b.AddEdge("a", "ghost"))
	require.NoError(t, b.AddConditionalEdge("c", routeField, map[string]string{
		"x": "nowhere",
		"y": END,
	}))
	b.SetEntryPoint("a")

	g, err := b.Build()
	require.Error(t, err)
	assert.Nil(t, g)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Errors, 4)

	var dup *DuplicateNodeError
	require.ErrorAs(t, cfgErr.Errors[0], &dup)
	assert.Equal(t, "a", dup.Node)

	var dangling *DanglingEdgeError
	require.ErrorAs(t, cfgErr.Errors[1], &dangling)
	assert.Equal(t, "ghost", dangling.Target)
	assert.Empty(t, dangling.Key)

	require.ErrorAs(t, cfgErr.Errors[2], &dangling)
	assert.Equal(t, "c", dangling.From)
	assert.Equal(t, "x", dangling.Key)
	assert.Equal(t, "nowhere", dangling.Target)

	var missing *MissingEdgeError
	require.ErrorAs(t, cfgErr.Errors[3], &missing)
	assert.Equal(t, "b", missing.Node)

	assert.Contains(t, err.Error(), "4 problems")
	assert.Equal(t, "ConfigurationError", ErrorKind(err))
}

func TestBuilder_InvalidNodes(t *testing.T) {
	b := NewBuilder[testState]()

	var invalid *InvalidNodeError
	assert.ErrorAs(t, b.AddNode("", "", returns(nil)), &invalid)
	assert.ErrorAs(t, b.AddNode(END, "", returns(nil)), &invalid)
	assert.ErrorAs(t, b.AddNode("nil", "", nil), &invalid)
	assert.Equal(t, "nil function", invalid.Reason)
}

func TestBuilder_InvalidEdges(t *testing.T) {
	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(nil)))

	var empty *EmptyRouteKeyError
	assert.ErrorAs(t, b.AddConditionalEdge("a", routeField, map[string]string{"": END}), &empty)

	var invalid *InvalidEdgeError
	assert.ErrorAs(t, b.AddConditionalEdge("a", nil, map[string]string{"k": END}), &invalid)
	assert.ErrorAs(t, b.AddConditionalEdge("a", routeField, nil), &invalid)
	assert.ErrorAs(t, b.AddEdge(END, "a"), &invalid)

	require.NoError(t, b.AddEdge("a", END))
	var dup *DuplicateEdgeError
	assert.ErrorAs(t, b.AddEdge("a", "a"), &dup)
	assert.ErrorAs(t, b.AddConditionalEdge("a", routeField, map[string]string{"k": END}), &dup)

	_, err := b.Build()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Errors, 6)
}

func TestBuilder_UnknownEdgeSource(t *testing.T) {
	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(nil)))
	require.NoError(t, b.AddEdge("a", END))
	require.NoError(t, b.AddEdge("ghost", "a"))

	_, err := b.Build()
	var dangling *DanglingEdgeError
	require.ErrorAs(t, err, &dangling)
	assert.True(t, dangling.Source)
	assert.Equal(t, "ghost", dangling.From)
}

func TestBuilder_EntryPointNotFound(t *testing.T) {
	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(nil)))
	require.NoError(t, b.AddEdge("a", END))
	b.SetEntryPoint("missing")

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrEntryPointNotFound)

	b.SetEntryPoint(END)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrEntryPointNotFound)
}

func TestBuilder_FinishPoint(t *testing.T) {
	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(nil)))
	b.SetFinishPoint("a")
	b.SetFinishPoint("ghost")

	_, err := b.Build()
	var dangling *DanglingEdgeError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "ghost", dangling.From)

	b = NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(nil)))
	b.SetFinishPoint("a")
	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, g.FinishPoints())
}

func TestBuilder_MaxStepsOption(t *testing.T) {
	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(nil)))
	require.NoError(t, b.AddEdge("a", END))

	for _, n := range []int{0, -1} {
		_, err := b.Build(WithMaxSteps(n))
		var opt *InvalidOptionError
		require.ErrorAs(t, err, &opt)
		assert.Equal(t, n, opt.Value)
	}

	g, err := b.Build(WithMaxSteps(5))
	require.NoError(t, err)
	assert.Equal(t, 5, g.MaxSteps())
}

func TestBuilder_NonStructStateNeedsSchema(t *testing.T) {
	b := NewBuilder[int]()
	require.NoError(t, b.AddNode("inc", "", func(_ context.Context, n int) (Update, error) {
		return Update{"n": n + 1}, nil
	}))
	require.NoError(t, b.AddEdge("inc", END))
	b.SetEntryPoint("inc")

	_, err := b.Build()
	require.Error(t, err)

	b.SetSchema(SchemaFunc[int](func(current int, update Update) (int, error) {
		n, ok := update["n"].(int)
		if !ok {
			return current, errors.New("n must be an int")
		}
		return n, nil
	}))
	g, err := b.Build()
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), 41)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestBuilder_GraphIsSnapshot(t *testing.T) {
	branches := map[string]string{"done": END}

	b := NewBuilder[testState]()
	require.NoError(t, b.AddNode("a", "", returns(Update{"route": "done"})))
	require.NoError(t, b.AddConditionalEdge("a", routeField, branches))
	b.SetEntryPoint("a")

	g, err := b.Build()
	require.NoError(t, err)

	branches["done"] = "a"
	require.NoError(t, b.AddNode("b", "", returns(nil)))

	assert.Len(t, g.Nodes(), 1)
	assert.Equal(t, END, g.Edges()[0].Branches["done"])
}
