// Package pkg provides the libraries behind diagshot.
//
// # Overview
//
// diagshot turns vector diagrams into images with headless Chrome. Starting
// a browser costs far more than rendering one diagram, so a build runs one
// long-lived browser and every render attaches to it. The pkg directory is
// organized by concern:
//
//  1. [endpoint] - where the shared browser's DevTools address is published
//  2. [broker] - lifecycle of the shared browser process
//  3. [browser] - attach-or-launch for render jobs, tabs and handles
//  4. [raster] - SVG size resolution and PNG capture
//  5. [diagram] - Mermaid and Graphviz renderers
//  6. [pipeline] - job execution with the artifact [cache]
//
// Supporting packages: [config], [errors], [observability], [buildinfo].
//
// # Architecture
//
//	diagshot broker <record>          render job (svg2png, diagram)
//	         ↓                                  ↓
//	  launch Chrome, publish ──► record ──► attach, or launch a private Chrome
//	         ↓                                  ↓
//	  wait for signal or crash            open tab → load → resolve size
//	         ↓                                  ↓
//	  remove record, close Chrome         set viewport → capture PNG → close tab
//
// # Quick Start
//
// Rasterize an SVG document, sharing a broker's browser when one is running:
//
//	store, _ := endpoint.Open("/tmp/build/ws-endpoint")
//	client := browser.NewClient(store, browser.Options{}, logger)
//	runner := pipeline.NewRunner(nil, nil, client, logger)
//
//	job := pipeline.NewJob(diagram.KindSVG, svg)
//	res, err := runner.Execute(ctx, job)
//	if err != nil {
//	    return err
//	}
//	os.Stdout.Write(res.Data)
package pkg
