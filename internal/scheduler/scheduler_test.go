package scheduler

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/memory"
	"github.com/vk/memsched/internal/testutil"
)

var size = hlo.ByteSizeFunc(hlo.DefaultPointerSize)

// scheduleCallees schedules every embedded computation of p with the list
// scheduler and returns their costs.
func scheduleCallees(t *testing.T, p *testutil.Program) memory.Costs {
	t.Helper()
	costs := make(memory.Costs)
	for _, c := range p.Module.Computations() {
		if c == p.Entry() {
			continue
		}
		seq, err := NewList(size, costs).Schedule(context.Background(), c)
		require.NoError(t, err)
		bytes, err := memory.MinimumMemoryForComputation(c, seq, size, costs)
		require.NoError(t, err)
		costs[c] = bytes
	}
	return costs
}

func TestList_PrefersLastUse(t *testing.T) {
	p := testutil.LastUseProgram(t)

	seq, err := NewList(size, memory.Costs{}).Schedule(context.Background(), p.Entry())
	require.NoError(t, err)

	want := []string{"param", "ab", "exp", "add", "negate", "sub"}
	if diff := cmp.Diff(want, seq.Names()); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
	pos := seq.Positions()
	assert.Less(t, pos[p.I(t, "add")], pos[p.I(t, "negate")])
}

func TestList_AliasedOperandBreaksTie(t *testing.T) {
	p := testutil.AliasingProgram(t)

	seq, err := NewList(size, memory.Costs{}).Schedule(context.Background(), p.Entry())
	require.NoError(t, err)
	require.NoError(t, seq.Validate(p.Entry()))

	pos := seq.Positions()
	assert.Less(t, pos[p.I(t, "d")], pos[p.I(t, "e")])
	assert.Equal(t, "result", seq[len(seq)-1].Name())
}

func TestList_SubcomputationsDeferExpensiveLoop(t *testing.T) {
	p := testutil.SubcomputationsProgram(t)
	costs := scheduleCallees(t, p)

	assert.Equal(t, int64(33), costs[p.C(t, "WhileCond")])
	assert.Equal(t, int64(48), costs[p.C(t, "WhileBody")])

	seq, err := NewList(size, costs).Schedule(context.Background(), p.Entry())
	require.NoError(t, err)

	// The loop is pushed behind the transpose even though running it first
	// would have been cheaper. That is the greedy heuristic at work.
	want := []string{"while_init", "matrix", "transpose", "while_loop", "bcast", "add"}
	if diff := cmp.Diff(want, seq.Names()); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestList_WhileTupleEntry(t *testing.T) {
	p := testutil.WhileTupleProgram(t)
	costs := scheduleCallees(t, p)

	seq, err := NewList(size, costs).Schedule(context.Background(), p.Entry())
	require.NoError(t, err)

	assert.Equal(t, []string{"param_iter", "param_data", "tuple", "while"}, seq.Names())
	bytes, err := memory.MinimumMemoryForComputation(p.Entry(), seq, size, costs)
	require.NoError(t, err)
	assert.Equal(t, int64(56), bytes)
}

func TestList_MissingCalleeCost(t *testing.T) {
	p := testutil.WhileTupleProgram(t)

	_, err := NewList(size, memory.Costs{}).Schedule(context.Background(), p.Entry())

	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrMissingSchedule)
}

func TestList_CancelledContext(t *testing.T) {
	p := testutil.LastUseProgram(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewList(size, memory.Costs{}).Schedule(ctx, p.Entry())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestList_SingleParameterFirst(t *testing.T) {
	vec := hlo.MakeShape(hlo.F32, 16)
	b := hlo.NewBuilder("c")
	x := b.AddParameter(0, vec, "x")
	neg := b.AddUnary(vec, hlo.OpNegate, x)
	b.AddBinary(vec, hlo.OpMultiply, neg, x)
	c, err := b.Build()
	require.NoError(t, err)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			factory, err := Lookup(name)
			require.NoError(t, err)
			seq, err := factory(size, memory.Costs{}).Schedule(context.Background(), c)
			require.NoError(t, err)
			assert.Same(t, x, seq[0])
			assert.Same(t, c.Root(), seq[len(seq)-1])
		})
	}
}

func TestDependencyOrder(t *testing.T) {
	testCases := []struct {
		name    string
		program func(*testing.T) *testutil.Program
		want    []string
	}{
		{
			name:    "last use",
			program: testutil.LastUseProgram,
			want:    []string{"param", "ab", "exp", "add", "negate", "sub"},
		},
		{
			name:    "aliasing",
			program: testutil.AliasingProgram,
			want:    []string{"param", "p0", "p1", "t", "a", "b", "c", "d", "e", "f", "result"},
		},
		{
			name:    "subcomputations",
			program: testutil.SubcomputationsProgram,
			want:    []string{"matrix", "transpose", "while_init", "while_loop", "bcast", "add"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.program(t)
			seq, err := NewDependencyOrder(size, nil).Schedule(context.Background(), p.Entry())
			require.NoError(t, err)
			assert.Equal(t, tc.want, seq.Names())
		})
	}
}

func TestDependencyOrder_DeadCodeIsScheduled(t *testing.T) {
	vec := hlo.MakeShape(hlo.F32, 4)
	b := hlo.NewBuilder("c")
	x := b.AddParameter(0, vec, "x")
	b.AddUnary(vec, hlo.OpExp, x) // never read
	out := b.AddUnary(vec, hlo.OpNegate, x)
	b.SetRoot(out)
	c, err := b.Build()
	require.NoError(t, err)

	seq, err := NewDependencyOrder(size, nil).Schedule(context.Background(), c)
	require.NoError(t, err)

	require.NoError(t, seq.Validate(c))
	assert.Same(t, out, seq[len(seq)-1])
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{DependencyOrderStrategy, ListStrategy}, r.Names())

	f, err := r.Lookup("")
	require.NoError(t, err)
	_, isList := f(size, nil).(*List)
	assert.True(t, isList)

	_, err = r.Lookup("optimal")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Contains(t, err.Error(), "dependency-order")

	reverse := func(hlo.SizeFunc, memory.CostTable) Scheduler { return &DependencyOrder{} }
	require.NoError(t, r.Register("reverse", reverse))
	assert.Error(t, r.Register("reverse", reverse))
	assert.Error(t, r.Register("", reverse))
	_, err = r.Lookup("reverse")
	assert.NoError(t, err)

	// The built-in registry is untouched.
	_, err = Lookup("reverse")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
