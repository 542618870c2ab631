/*
Package definition builds networks from YAML documents.

A definition names a network, its options and a list of flows. Each flow
starts at a source and runs through steps; payloads are untyped (any), so
filters and maps are written as expressions (package expr) and named
operators come from a Catalog.

	name: fan-out
	options:
	  policy: drop
	flows:
	  - name: numbers
	    source: {type: range, count: 20}
	    steps:
	      - split:
	          when: "value % 2 == 0"
	          top:
	            - filter: "value < 10"
	            - sink: {type: collect, name: evens}
	          bottom:
	            - filter: "value >= 10"
	            - sink: {type: collect, name: odds}

Steps:

	filter: <expr>           keep events for which expr is true
	map: <expr>              replace the payload by expr
	transform: <name>        apply a catalog transform
	split:                   fan out; when: <expr> routes, no when broadcasts
	  top: [steps]
	  bottom: [steps]
	  join: {combine: <name or expr>}   re-join the open branch tails
	sink: {type: <name>, name: <label>, ...params}

Sink names must be unique within a definition.

A flow whose steps do not end in a sink stays open under its name. A
top-level joins entry merges two open flows and continues with more steps:

	joins:
	  - top: left
	    bottom: right
	    combine: "top + bottom"
	    steps:
	      - sink: {type: collect, name: sums}

Combiners are catalog names (sum, concat, pair) or expressions over top and
bottom. A combiner error is logged and the pair yields nil.
*/
package definition
