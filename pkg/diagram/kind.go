package diagram

import (
	"path/filepath"
	"strings"
)

// Kind identifies the source language of a diagram.
type Kind string

const (
	KindMermaid Kind = "mermaid"
	KindDOT     Kind = "dot"
	KindSVG     Kind = "svg"
)

// KindFromPath picks the renderer for an input file. Graphviz files are
// recognised by extension; everything else is treated as Mermaid.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dot", ".gv":
		return KindDOT
	case ".svg":
		return KindSVG
	}
	return KindMermaid
}
