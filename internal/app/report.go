package app

import (
	"fmt"
	"io"

	"github.com/vk/memsched/internal/driver"
	"gopkg.in/yaml.v3"
)

type moduleResult struct {
	*driver.Result
	Source string
}

type reportDoc struct {
	Modules []reportModule `yaml:"modules"`
}

type reportModule struct {
	Module       string              `yaml:"module"`
	Source       string              `yaml:"source"`
	Strategy     string              `yaml:"strategy"`
	MemoryBytes  int64               `yaml:"memory_bytes"`
	Computations []reportComputation `yaml:"computations"`
}

type reportComputation struct {
	Name        string   `yaml:"name"`
	MemoryBytes int64    `yaml:"memory_bytes"`
	Sequence    []string `yaml:"sequence"`
}

func buildReport(results []*moduleResult) reportDoc {
	doc := reportDoc{Modules: make([]reportModule, 0, len(results))}
	for _, res := range results {
		rm := reportModule{
			Module:      res.Module.Name(),
			Source:      res.Source,
			Strategy:    res.Strategy,
			MemoryBytes: res.Peak,
		}
		for _, c := range res.Sequence.Computations() {
			rm.Computations = append(rm.Computations, reportComputation{
				Name:        c.Name(),
				MemoryBytes: res.Memory[c],
				Sequence:    res.Sequence[c].Names(),
			})
		}
		doc.Modules = append(doc.Modules, rm)
	}
	return doc
}

func (a *App) writeReport(results []*moduleResult) error {
	doc := buildReport(results)
	if a.config.Output == OutputYAML {
		enc := yaml.NewEncoder(a.outW)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return writeText(a.outW, doc)
}

func writeText(w io.Writer, doc reportDoc) error {
	for _, m := range doc.Modules {
		if _, err := fmt.Fprintf(w, "module %s (%s, strategy %s): %d bytes\n", m.Module, m.Source, m.Strategy, m.MemoryBytes); err != nil {
			return err
		}
		for _, c := range m.Computations {
			if _, err := fmt.Fprintf(w, "  computation %s: %d bytes\n", c.Name, c.MemoryBytes); err != nil {
				return err
			}
			for _, name := range c.Sequence {
				if _, err := fmt.Fprintf(w, "    %s\n", name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
