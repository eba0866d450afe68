// Package pageupdate implements the page-update adapter: the bridge's only
// external dependency and its sole path to the server.
//
// Updater exposes the two primitives the bridge calls: ApplyPartialUpdate
// (issue a request and splice the response into the document) and Navigate
// (client-side route change without a full reload). HTTPUpdater implements
// them against a fragment-serving backend; LiveUpdater decorates any
// Updater and mirrors applied updates to attached WebSocket sessions.
package pageupdate
