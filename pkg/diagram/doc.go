// Package diagram turns diagram source into SVG.
//
// # Mermaid
//
// Mermaid markup is rendered by the Mermaid browser bundle inside a tab of
// the job's browser. The bundle is located once with [FindBundle]:
//
//	bundle, err := diagram.FindBundle(cfg.Mermaid.Bundle, diagram.DefaultRoots()...)
//	m, err := diagram.NewMermaid(bundle, "default")
//	svg, err := m.Render(page, source, "white")
//
// # Graphviz
//
// DOT markup is rendered in-process through go-graphviz and needs no browser:
//
//	svg, err := diagram.RenderDOT(ctx, source)
//
// Both renderers return a standalone SVG document. Rasterizing it is the job
// of package raster.
package diagram
