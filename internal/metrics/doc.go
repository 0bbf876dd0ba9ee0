// Package metrics counts job outcomes in a private Prometheus registry and,
// when a textfile path is configured, writes it at the end of every run for
// node_exporter's textfile collector.
package metrics
