// Package task implements the asynchronous scraping pipeline: an in-memory
// broker with at-least-once delivery, a periodic dispatcher that queues
// eligible tasks, and an executor worker pool that claims tasks and runs them
// through fetch, extraction and persistence.
//
// All coordination between the dispatcher and the workers goes through the
// task store's atomic status transitions. The broker carries only task IDs,
// so a duplicate or stale delivery is harmless: the claim decides.
package task
