// Package document implements the HTML document model and the island
// marker contract.
//
// An element opts into being an island by declaring data-island with the
// island type, data-island-id with its stable id, optional space-separated
// data-island-groups, and a JSON properties payload either inline
// (data-island-props) or referenced by id (data-island-props-ref pointing
// at a JSON <script> element):
//
//	<div data-island="analytics" data-island-id="a1"
//	     data-island-groups="analytics dashboard"
//	     data-island-props='{"caseId":"JD001"}'></div>
//
// The Document type guards the tree with a mutex and bumps a revision
// counter on every mutation, which is how the bridge observes that markers
// may have been removed since its last sweep.
package document
