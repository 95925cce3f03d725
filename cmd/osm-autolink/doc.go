// Package main hosts the osm-autolink CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, opens the record store
// under its single-writer lock, and hands the heavy lifting to the workflow
// package. Record inspection and configuration scaffolding live here too.
package main
