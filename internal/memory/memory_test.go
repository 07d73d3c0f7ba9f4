package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/memsched/internal/buffers"
	"github.com/vk/memsched/internal/hlo"
	"github.com/vk/memsched/internal/schedule"
	"github.com/vk/memsched/internal/testutil"
)

var size = hlo.ByteSizeFunc(hlo.DefaultPointerSize)

func whileTupleSequences(t *testing.T, p *testutil.Program) schedule.ModuleSequence {
	t.Helper()
	seqs := make(schedule.ModuleSequence)
	seqs[p.Entry()] = schedule.Sequence{p.I(t, "param_iter"), p.I(t, "param_data"), p.I(t, "tuple"), p.I(t, "while")}
	seqs[p.C(t, "WhileCond")] = schedule.Sequence{p.I(t, "cond_param"), p.I(t, "cond_iter"), p.I(t, "cond_data"), p.I(t, "cond_lt")}
	seqs[p.C(t, "WhileBody")] = schedule.Sequence{p.I(t, "body_param")}
	return seqs
}

func TestMinimumMemoryForModule_WhileOverTuple(t *testing.T) {
	p := testutil.WhileTupleProgram(t)

	bytes, err := MinimumMemoryForModule(p.Module, whileTupleSequences(t, p), size)

	require.NoError(t, err)
	assert.Equal(t, int64(56), bytes)
}

func TestMinimumMemoryForModule_MissingSchedule(t *testing.T) {
	p := testutil.WhileTupleProgram(t)
	seqs := whileTupleSequences(t, p)
	delete(seqs, p.C(t, "WhileBody"))

	_, err := MinimumMemoryForModule(p.Module, seqs, size)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSchedule)
	assert.Contains(t, err.Error(), "WhileBody")
}

func TestMinimumMemoryForComputation_SubcomputationsUseMaximum(t *testing.T) {
	p := testutil.WhileTupleProgram(t)
	seqs := whileTupleSequences(t, p)
	entry := seqs[p.Entry()]

	testCases := []struct {
		name       string
		cond, body int64
		want       int64
	}{
		{name: "equal", cond: 24, body: 24, want: 32 + 24},
		{name: "body dominates", cond: 10, body: 100, want: 32 + 100},
		{name: "condition dominates", cond: 70, body: 5, want: 32 + 70},
		{name: "free loop", cond: 0, body: 0, want: 32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			costs := Costs{p.C(t, "WhileCond"): tc.cond, p.C(t, "WhileBody"): tc.body}
			got, err := MinimumMemoryForComputation(p.Entry(), entry, size, costs)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMinimumMemoryForComputation_NilCostsWithCallIsMissing(t *testing.T) {
	p := testutil.WhileTupleProgram(t)
	_, err := MinimumMemoryForComputation(p.Entry(), whileTupleSequences(t, p)[p.Entry()], size, nil)
	assert.ErrorIs(t, err, ErrMissingSchedule)
}

func TestMinimumMemoryForComputation_RejectsInvalidSequence(t *testing.T) {
	p := testutil.LastUseProgram(t)
	seq := schedule.Sequence{p.I(t, "param"), p.I(t, "add")}

	_, err := MinimumMemoryForComputation(p.Entry(), seq, size, Costs{})

	assert.ErrorIs(t, err, schedule.ErrInvalidSequence)
}

func TestSimulate_LastUseFreesEarly(t *testing.T) {
	p := testutil.LastUseProgram(t)
	const vec = 42 * 4

	addFirst := schedule.Sequence{p.I(t, "param"), p.I(t, "ab"), p.I(t, "exp"), p.I(t, "add"), p.I(t, "negate"), p.I(t, "sub")}
	negateFirst := schedule.Sequence{p.I(t, "param"), p.I(t, "ab"), p.I(t, "exp"), p.I(t, "negate"), p.I(t, "add"), p.I(t, "sub")}

	good, err := Simulate(p.Entry(), addFirst, size, Costs{})
	require.NoError(t, err)
	bad, err := Simulate(p.Entry(), negateFirst, size, Costs{})
	require.NoError(t, err)

	assert.Equal(t, int64(3*vec), good.Peak)
	assert.Equal(t, int64(4*vec), bad.Peak)
	assert.Equal(t, "add", bad.PeakAt.Name())

	// Only the output survives the last step.
	last := good.Steps[len(good.Steps)-1]
	assert.Equal(t, int64(vec), last.Live)
	assert.Equal(t, int64(0), last.Transient)
}

func TestSimulate_TupleElementsAreNotChargedTwice(t *testing.T) {
	p := testutil.AliasingProgram(t)
	c := p.Entry()
	seq := schedule.Sequence(c.Instructions())

	prof, err := Simulate(c, seq, size, Costs{})
	require.NoError(t, err)

	byName := make(map[string]Step)
	for _, s := range prof.Steps {
		byName[s.Instruction.Name()] = s
	}
	// The tuple adds only its pointer table.
	assert.Equal(t, byName["p1"].Live+16, byName["t"].Live)
	// Reading an element allocates nothing.
	assert.Equal(t, byName["t"].Live, byName["a"].Live)
}

func TestLiveness_CostModel(t *testing.T) {
	p := testutil.AliasingProgram(t)
	l := NewLiveness(buffers.Analyze(p.Entry()), size)

	assert.Equal(t, int64(16), l.BytesDefined(p.I(t, "t")))
	assert.Equal(t, int64(0), l.BytesDefined(p.I(t, "a")))
	assert.Equal(t, int64(4000), l.BytesDefined(p.I(t, "c")))
	// result's pointer table: three elements.
	assert.Equal(t, int64(24), l.BytesDefined(p.I(t, "result")))

	counts := l.InitialUseCounts()
	p1 := l.Analysis().Defined(p.I(t, "p1"))[0]
	assert.Equal(t, 5, counts[p1])
	d := l.Analysis().Defined(p.I(t, "d"))[0]
	// One reader (result) plus the live-out hold.
	assert.Equal(t, 2, counts[d])
}

func TestLiveness_SubcomputationBytes(t *testing.T) {
	p := testutil.ConditionalProgram(t)
	l := NewLiveness(buffers.Analyze(p.Entry()), size)
	costs := Costs{p.C(t, "TrueBranch"): 64, p.C(t, "FalseBranch"): 96}

	got, err := l.SubcomputationBytes(p.I(t, "cond"), costs)
	require.NoError(t, err)
	assert.Equal(t, int64(96), got)

	got, err = l.SubcomputationBytes(p.I(t, "before"), costs)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = l.SubcomputationBytes(p.I(t, "call"), costs)
	assert.ErrorIs(t, err, ErrMissingSchedule)
}

func TestMinimumMemoryForComputation_LoopStateReadAfterLoop(t *testing.T) {
	testCases := []struct {
		name      string
		readAfter bool
		want      int64
	}{
		// c, the loop state and a are all live at a.
		{name: "init read after the loop", readAfter: true, want: 48},
		// The loop updates c in place; only the state and a remain.
		{name: "loop is the last reader", readAfter: false, want: 32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := testutil.LoopStateProgram(t, tc.readAfter)
			costs := Costs{p.C(t, "LoopCond"): 0, p.C(t, "LoopBody"): 0}
			seq := schedule.Sequence{p.I(t, "c"), p.I(t, "loop"), p.I(t, "a")}

			bytes, err := MinimumMemoryForComputation(p.Entry(), seq, size, costs)

			require.NoError(t, err)
			assert.Equal(t, tc.want, bytes)
		})
	}
}
