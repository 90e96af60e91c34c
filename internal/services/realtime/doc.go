// Package realtime fans out row-level change events to websocket
// subscribers.
//
// Producers call Hub.Publish after every committed mutation. Subscribers
// receive only changes for their barangay and tables; changes addressed to a
// single recipient reach only that user.
package realtime
