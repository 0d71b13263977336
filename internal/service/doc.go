// Package service provides the application-level operations for scrape
// tasks: submission, status retrieval and cancellation. It sits between the
// HTTP handlers and the store, owning the business rules the transport layer
// should not know about.
package service
