// Package visualize renders the parent-edge export of a network.
//
// Three formats are supported:
//   - dot: a Graphviz digraph
//   - json: the epn.Graph itself
//   - html: a self-contained vis-network page
//
// Render writes one format to a writer. WriteDir writes index.html and
// epn.json into a directory, creating a temporary one when none is given:
//
//	dir, err := visualize.WriteDir("", n.Graph())
//	if err != nil {
//	    return err
//	}
//	fmt.Println("network visualization at:", dir)
package visualize
