// Package slot discovers and tracks the page containers plugins mount into.
//
// A slot is a named mount point declared in markup with the data-slot
// attribute:
//
//	<section data-slot="sidebar"></section>
//
// Several containers may share a slot ID; they are kept in document order.
// The registry only grows on its own: entries are removed solely through
// Remove and Clear.
//
// The package also carries the small set of DOM helpers the plugin manager
// and mount functions need (visibility, text, attributes, fragments) over
// golang.org/x/net/html nodes.
package slot
