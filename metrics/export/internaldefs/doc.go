// Package internaldefs exposes stable metric name and help definitions shared
// by exporter implementations.
//
// Counter definitions live here so every exporter renders identical metric
// names. Changes to definitions in this package affect all exporters
// simultaneously.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
