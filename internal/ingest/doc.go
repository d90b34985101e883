// Package ingest feeds crawl events into a live layout.
//
// An Ingestor owns the graph model, the force simulator and the render
// binder. Ingest only queues an event and may be called from any goroutine.
// Everything else happens in Tick, which runs on a single goroutine:
//
//  1. drain the queue in arrival order and merge each event
//  2. when the node or edge count changed, reset the simulator and resync
//     the binder
//  3. advance the simulator one step
//  4. repaint when the step moved anything or an event was drained
//
// Mount starts a loop that calls Tick on every ticker fire and Unmount
// stops it. Unmount returns only after the loop has exited, so nothing is
// moved or painted afterwards even if the ticker fires again.
//
// Events reach Ingest through Sources: files, fixed slices, the crawl
// store, a websocket subscription or a live crawl.
package ingest
