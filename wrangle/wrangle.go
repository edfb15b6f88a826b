// Package wrangle compiles the instruction tables of a RISC-V manual (or a
// riscv-opcodes tree) into a constants table and a decode table.
//
// Generation is two-phase: every document is parsed first, possibly in
// parallel, and only then are formats clustered, conflicts checked and the
// tables built and written.
package wrangle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Generator runs the pipeline for one Config.
type Generator struct {
	cfg *Config
	log log.Logger
}

func NewGenerator(cfg *Config, logger log.Logger) (*Generator, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, log: logger}, nil
}

// Parse locates the source documents and parses all of them. Malformed
// optional documents are skipped; every other parse error is collected and
// returned together.
func (g *Generator) Parse(ctx context.Context) (*Sources, []*ParsedDocument, error) {
	srcs, err := Locate(g.cfg.SourceRoot, g.cfg.Optional)
	if err != nil {
		return nil, nil, err
	}
	g.log.Info("Located sources", "root", srcs.Root, "layout", srcs.Layout, "documents", len(srcs.Documents))
	for _, rel := range srcs.Skipped {
		g.log.Debug("Document not used", "path", rel)
	}

	env := &ParseEnv{Log: g.log}
	if srcs.ArgTable != "" {
		env.Args, err = loadArgs(srcs.ArgTable)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load argument table: %w", err)
		}
	}

	results := make([]*ParsedDocument, len(srcs.Documents))
	errs := make([]error, len(srcs.Documents))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.jobs())
	for i, doc := range srcs.Documents {
		i, doc := i, doc
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = ParseDocument(doc, env)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var all ErrorList
	var docs []*ParsedDocument
	for i, doc := range srcs.Documents {
		err := errs[i]
		if err == nil {
			docs = append(docs, results[i])
			continue
		}
		if doc.Optional && IsMalformed(err) {
			g.log.Warn("Skipping malformed optional document", "doc", doc.Rel, "err", err)
			continue
		}
		var list ErrorList
		if errors.As(err, &list) {
			all = append(all, list...)
		} else {
			all = append(all, err)
		}
	}
	if err := all.Err(); err != nil {
		return nil, nil, err
	}
	return srcs, docs, nil
}

// Compile runs every phase up to and including the table builder.
func (g *Generator) Compile(ctx context.Context) (*Tables, error) {
	srcs, docs, err := g.Parse(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg, err := Normalize(docs, g.log)
	if err != nil {
		return nil, err
	}
	tables, err := Build(reg)
	if err != nil {
		return nil, err
	}

	prov, err := ReadProvenance(srcs.Root)
	if err != nil {
		g.log.Warn("Failed to read source revision", "root", srcs.Root, "err", err)
	}
	tables.Provenance = prov
	g.log.Info("Built tables", "instructions", len(tables.Instructions.Entries), "constants", tables.Constants.Len())
	return tables, nil
}

// Render serializes tables according to the configuration.
func (g *Generator) Render(tables *Tables) ([]Output, error) {
	return Render(tables, g.cfg)
}

// Run compiles, renders and writes the tables.
func (g *Generator) Run(ctx context.Context) (*Tables, error) {
	tables, err := g.Compile(ctx)
	if err != nil {
		return nil, err
	}
	outs, err := g.Render(tables)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := WriteOutputs(g.cfg.OutDir, outs); err != nil {
		return nil, err
	}
	for _, out := range outs {
		g.log.Info("Wrote table", "dir", g.cfg.OutDir, "file", out.Name, "bytes", len(out.Data))
	}
	return tables, nil
}
