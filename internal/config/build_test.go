package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/memsched/internal/hlo"
)

var scalar = Shape{Type: "f32"}

func whileModel() *Model {
	pair := Shape{Tuple: []Shape{scalar, scalar}}
	return &Model{
		Name:   "while_tuple",
		Source: "inline",
		Computations: []*Computation{
			{
				Name:  "entry",
				Entry: true,
				Root:  "while",
				Instructions: []*Instruction{
					// Listed before its operand on purpose.
					{Name: "while", Op: "while", Shape: pair, Operands: []string{"tuple"}, Calls: []string{"WhileCond", "WhileBody"}},
					{Name: "param_iter", Op: "parameter", Shape: scalar},
					{Name: "param_data", Op: "parameter", Shape: scalar, Number: 1},
					{Name: "tuple", Op: "tuple", Shape: pair, Operands: []string{"param_iter", "param_data"}},
				},
			},
			{
				Name: "WhileCond",
				Instructions: []*Instruction{
					{Name: "cond_param", Op: "parameter", Shape: pair},
					{Name: "cond_iter", Op: "get-tuple-element", Shape: scalar, Operands: []string{"cond_param"}},
					{Name: "cond_data", Op: "get-tuple-element", Shape: scalar, Operands: []string{"cond_param"}, Index: 1},
					{Name: "cond_lt", Op: "less-than", Shape: Shape{Type: "pred"}, Operands: []string{"cond_iter", "cond_data"}},
				},
			},
			{
				Name: "WhileBody",
				Instructions: []*Instruction{
					{Name: "body_param", Op: "parameter", Shape: pair},
				},
			},
		},
	}
}

func instructionNames(c *hlo.Computation) []string {
	var names []string
	for _, instr := range c.Instructions() {
		names = append(names, instr.Name())
	}
	return names
}

func TestBuildModule(t *testing.T) {
	m, err := BuildModule(context.Background(), whileModel())
	require.NoError(t, err)

	assert.Equal(t, "while_tuple", m.Name())
	require.Len(t, m.Computations(), 3)
	assert.Equal(t, "WhileCond", m.Computations()[0].Name())

	entry := m.EntryComputation()
	require.NotNil(t, entry)
	assert.Equal(t, "entry", entry.Name())
	assert.Equal(t, []string{"param_iter", "param_data", "tuple", "while"}, instructionNames(entry))
	assert.Equal(t, "while", entry.Root().Name())

	loop, ok := entry.InstructionByName("while")
	require.True(t, ok)
	assert.Equal(t, "WhileCond", loop.WhileCondition().Name())
	assert.Equal(t, "WhileBody", loop.WhileBody().Name())

	data, ok := entry.InstructionByName("param_data")
	require.True(t, ok)
	assert.Equal(t, 1, data.ParameterNumber())
	assert.Equal(t, "(f32[], f32[])", loop.Shape().String())
}

func TestBuildModule_LastComputationIsDefaultEntry(t *testing.T) {
	model := &Model{Name: "m", Computations: []*Computation{
		{Name: "first", Instructions: []*Instruction{{Name: "a", Op: "parameter", Shape: scalar}}},
		{Name: "second", Instructions: []*Instruction{{Name: "b", Op: "constant", Shape: scalar}}},
	}}

	m, err := BuildModule(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, "second", m.EntryComputation().Name())
}

func TestBuildModule_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(m *Model)
		wantErr string
		isCycle bool
	}{
		{
			name: "unknown operand",
			mutate: func(m *Model) {
				m.Computations[0].Instructions[3].Operands = []string{"param_iter", "nope"}
			},
			wantErr: "unknown operand 'nope'",
		},
		{
			name: "unknown callee",
			mutate: func(m *Model) {
				m.Computations[0].Instructions[0].Calls = []string{"WhileCond", "Missing"}
			},
			wantErr: "unknown computation 'Missing'",
		},
		{
			name: "operand cycle",
			mutate: func(m *Model) {
				m.Computations[0].Instructions[1].Op = "negate"
				m.Computations[0].Instructions[1].Operands = []string{"tuple"}
			},
			wantErr: "cycle detected",
			isCycle: true,
		},
		{
			name: "recursive call",
			mutate: func(m *Model) {
				body := m.Computations[2]
				body.Instructions = append(body.Instructions, &Instruction{
					Name: "again", Op: "call", Shape: body.Instructions[0].Shape,
					Operands: []string{"body_param"}, Calls: []string{"entry"},
				})
			},
			wantErr: "cycle detected",
			isCycle: true,
		},
		{
			name:    "two entries",
			mutate:  func(m *Model) { m.Computations[1].Entry = true },
			wantErr: "both 'entry' and 'WhileCond' are marked entry",
		},
		{
			name:    "unknown root",
			mutate:  func(m *Model) { m.Computations[0].Root = "ghost" },
			wantErr: "root 'ghost'",
		},
		{
			name:    "unknown opcode",
			mutate:  func(m *Model) { m.Computations[2].Instructions[0].Op = "fusion" },
			wantErr: "fusion",
		},
		{
			name:    "duplicate computation",
			mutate:  func(m *Model) { m.Computations[2].Name = "WhileCond" },
			wantErr: "defined twice",
		},
		{
			name: "arity violation",
			mutate: func(m *Model) {
				m.Computations[0].Instructions[0].Calls = []string{"WhileCond"}
			},
			wantErr: "malformed graph",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			model := whileModel()
			tc.mutate(model)

			_, err := BuildModule(context.Background(), model)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Equal(t, tc.isCycle, errors.Is(err, ErrCycle))
		})
	}
}

func TestShapeResolve(t *testing.T) {
	testCases := []struct {
		name    string
		shape   Shape
		want    string
		wantErr bool
	}{
		{name: "scalar", shape: Shape{Type: "pred"}, want: "pred[]"},
		{name: "matrix", shape: Shape{Type: "F32", Dims: []int64{2, 4}}, want: "f32[2,4]"},
		{name: "nested tuple", shape: Shape{Tuple: []Shape{{Type: "s32", Dims: []int64{3}}, {Tuple: []Shape{}}}}, want: "(s32[3], ())"},
		{name: "unknown type", shape: Shape{Type: "f128"}, wantErr: true},
		{name: "negative dimension", shape: Shape{Type: "f32", Dims: []int64{-1}}, wantErr: true},
		{name: "typed tuple", shape: Shape{Type: "f32", Tuple: []Shape{scalar}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.shape.Resolve()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}
