// Package viewer serves a live view of a layout over HTTP.
//
// The Hub is a render.Surface that broadcasts every painted frame to the
// connected browsers over a websocket. The layout is mounted on the hub
// when the first viewer connects and unmounted when the last one leaves,
// so the simulation only ticks while somebody is watching. The page
// closes its socket while the tab is hidden, which counts as leaving.
//
// The Feed re-publishes crawl events to websocket subscribers using the
// same subscribe message ingest.WebSocketSource sends, so one crawlgraph
// process can feed the layout of another.
package viewer
