// Package config loads the report configuration.
//
// Values are layered with koanf: built-in defaults, then an optional YAML
// (or JSON) file passed with -c, then KILTER_* environment variables. A
// minimal file looks like:
//
//	layout_id: 1
//	output_dir: output
//	board_image: img.png
//	stratified: true
//	metrics_file: /var/lib/node_exporter/kilter_report.prom
package config
