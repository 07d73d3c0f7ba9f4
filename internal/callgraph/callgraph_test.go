package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/testutil"
)

func names(cs []*hlo.Computation) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}

func TestBuild_PostOrderAndLevels(t *testing.T) {
	p := testutil.ConditionalProgram(t)

	g, err := Build(p.Module)
	require.NoError(t, err)

	assert.Equal(t, []string{"TrueBranch", "FalseBranch", "Scale", "entry"}, names(g.PostOrder()))
	require.Len(t, g.Levels(), 2)
	assert.Equal(t, []string{"TrueBranch", "FalseBranch", "Scale"}, names(g.Levels()[0]))
	assert.Equal(t, []string{"entry"}, names(g.Levels()[1]))

	assert.Equal(t, []string{"TrueBranch", "FalseBranch", "Scale"}, names(g.Callees(p.Entry())))
	assert.Equal(t, []string{"entry"}, names(g.Callers(p.C(t, "Scale"))))
	assert.Equal(t, []*hlo.Instruction{p.I(t, "cond")}, g.CallSites(p.C(t, "TrueBranch")))
	assert.Empty(t, g.CallSites(p.Entry()))
}

func TestBuild_UnreachableComputationsComeLast(t *testing.T) {
	scalar := hlo.MakeShape(hlo.F32)
	build := func(name string) *hlo.Computation {
		b := hlo.NewBuilder(name)
		b.AddParameter(0, scalar, name+"_p")
		c, err := b.Build()
		require.NoError(t, err)
		return c
	}

	m := hlo.NewModule("m")
	orphan := m.AddEmbeddedComputation(build("orphan"))
	callee := m.AddEmbeddedComputation(build("callee"))
	eb := hlo.NewBuilder("entry")
	x := eb.AddParameter(0, scalar, "x")
	eb.AddCall(scalar, callee, x)
	entry, err := eb.Build()
	require.NoError(t, err)
	_, err = m.AddEntryComputation(entry)
	require.NoError(t, err)

	g, err := Build(m)
	require.NoError(t, err)

	assert.Equal(t, []string{"callee", "entry", "orphan"}, names(g.PostOrder()))
	assert.Equal(t, []string{"callee", "orphan"}, names(g.Levels()[0]))
	assert.Empty(t, g.Callers(orphan))
}

func TestBuild_Malformed(t *testing.T) {
	scalar := hlo.MakeShape(hlo.F32)
	leaf := func(name string) *hlo.Computation {
		b := hlo.NewBuilder(name)
		b.AddParameter(0, scalar, name+"_p")
		c, err := b.Build()
		require.NoError(t, err)
		return c
	}
	caller := func(name string, target *hlo.Computation) *hlo.Computation {
		b := hlo.NewBuilder(name)
		x := b.AddParameter(0, scalar, name+"_x")
		b.AddCall(scalar, target, x)
		c, err := b.Build()
		require.NoError(t, err)
		return c
	}

	t.Run("callee outside the module", func(t *testing.T) {
		m := hlo.NewModule("m")
		_, err := m.AddEntryComputation(caller("entry", leaf("stray")))
		require.NoError(t, err)

		_, err = Build(m)
		assert.ErrorIs(t, err, hlo.ErrMalformedGraph)
		assert.Contains(t, err.Error(), "not part of module")
	})

	t.Run("entry is invoked", func(t *testing.T) {
		m := hlo.NewModule("m")
		entry, err := m.AddEntryComputation(leaf("entry"))
		require.NoError(t, err)
		m.AddEmbeddedComputation(caller("sneaky", entry))

		_, err = Build(m)
		assert.ErrorIs(t, err, hlo.ErrMalformedGraph)
	})

	t.Run("no entry", func(t *testing.T) {
		m := hlo.NewModule("m")
		m.AddEmbeddedComputation(leaf("lonely"))

		_, err := Build(m)
		assert.ErrorIs(t, err, hlo.ErrMalformedGraph)
	})
}

func TestNearestAncestorsInSameComputation(t *testing.T) {
	p := testutil.ConditionalProgram(t)
	g, err := Build(p.Module)
	require.NoError(t, err)

	testCases := []struct {
		name         string
		a, b         string
		wantA, wantB string
	}{
		{name: "same computation", a: "x", b: "after", wantA: "x", wantB: "after"},
		{name: "branch against caller", a: "true_neg", b: "after", wantA: "cond", wantB: "after"},
		{name: "caller against branch", a: "before", b: "false_add", wantA: "before", wantB: "cond"},
		{name: "sibling branches", a: "true_neg", b: "false_add", wantA: "cond", wantB: "cond"},
		{name: "different call sites", a: "scale_mul", b: "false_exp", wantA: "call", wantB: "cond"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotA, gotB := g.NearestAncestorsInSameComputation(p.I(t, tc.a), p.I(t, tc.b))
			require.NotNil(t, gotA)
			require.NotNil(t, gotB)
			assert.Equal(t, tc.wantA, gotA.Name())
			assert.Equal(t, tc.wantB, gotB.Name())
		})
	}
}

func TestNearestAncestors_SharedCalleeHasNoAncestor(t *testing.T) {
	scalar := hlo.MakeShape(hlo.F32)
	sb := hlo.NewBuilder("shared")
	sp := sb.AddParameter(0, scalar, "shared_p")
	inner := sb.AddUnary(scalar, hlo.OpNegate, sp)
	shared, err := sb.Build()
	require.NoError(t, err)

	eb := hlo.NewBuilder("entry")
	x := eb.AddParameter(0, scalar, "x")
	first := eb.AddCall(scalar, shared, x)
	eb.AddCall(scalar, shared, first)
	entry, err := eb.Build()
	require.NoError(t, err)

	m := hlo.NewModule("m")
	m.AddEmbeddedComputation(shared)
	_, err = m.AddEntryComputation(entry)
	require.NoError(t, err)

	g, err := Build(m)
	require.NoError(t, err)
	assert.Len(t, g.CallSites(shared), 2)

	a, b := g.NearestAncestorsInSameComputation(inner, x)
	assert.Nil(t, a)
	assert.Nil(t, b)
}
