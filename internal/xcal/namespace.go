// Package xcal reads and writes the XML representation of iCalendar
// (RFC 6321) for recurrence rules and expanded events.
package xcal

import "github.com/beevik/etree"

// Namespace is the xCal namespace
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// AddNamespace declares the xCal namespace as the default namespace of the
// document root
func AddNamespace(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns", Namespace)
}
