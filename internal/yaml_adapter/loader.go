// Package yaml_adapter loads program descriptions written in YAML into the
// format-agnostic config model.
package yaml_adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/memsched/internal/config"
	"github.com/vk/memsched/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// fileRoot mirrors the top level of a YAML program file.
type fileRoot struct {
	Module       string        `yaml:"module"`
	Computations []computation `yaml:"computations"`
}

type computation struct {
	Name         string        `yaml:"name"`
	Entry        bool          `yaml:"entry"`
	Root         string        `yaml:"root"`
	Instructions []instruction `yaml:"instructions"`
}

type instruction struct {
	Name       string   `yaml:"name"`
	Op         string   `yaml:"op"`
	Shape      shape    `yaml:"shape"`
	Operands   []string `yaml:"operands"`
	Calls      []string `yaml:"calls"`
	Index      int      `yaml:"index"`
	Number     int      `yaml:"number"`
	Dimensions []int64  `yaml:"dimensions"`
}

// shape is either {type, dims} or {tuple: [...]}.
type shape struct {
	Type  string  `yaml:"type"`
	Dims  []int64 `yaml:"dims"`
	Tuple []shape `yaml:"tuple"`
}

func (s shape) toConfig() config.Shape {
	out := config.Shape{Type: s.Type, Dims: s.Dims}
	if s.Tuple != nil {
		out.Tuple = make([]config.Shape, len(s.Tuple))
		for i, e := range s.Tuple {
			out.Tuple[i] = e.toConfig()
		}
	}
	return out
}

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML program loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string { return []string{".yaml", ".yml"} }

// Load decodes one YAML program file. Unknown fields are rejected.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	logger.Debug("YAML loader started.")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open YAML file %s: %w", path, err)
	}
	defer f.Close()

	var root fileRoot
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	model := &config.Model{Name: root.Module, Source: path}
	if model.Name == "" {
		base := filepath.Base(path)
		model.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, c := range root.Computations {
		comp := &config.Computation{Name: c.Name, Entry: c.Entry, Root: c.Root}
		for _, instr := range c.Instructions {
			comp.Instructions = append(comp.Instructions, &config.Instruction{
				Name:       instr.Name,
				Op:         instr.Op,
				Shape:      instr.Shape.toConfig(),
				Operands:   instr.Operands,
				Calls:      instr.Calls,
				Index:      instr.Index,
				Number:     instr.Number,
				Dimensions: instr.Dimensions,
			})
		}
		model.Computations = append(model.Computations, comp)
	}

	logger.Debug("YAML loading complete.", "module", model.Name, "computations", len(model.Computations))
	return model, nil
}
