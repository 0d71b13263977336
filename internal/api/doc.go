// Package api contains the HTTP handlers for the venue scraper API.
//
// Handlers are thin: they decode and validate requests, delegate to the
// service layer, and translate service errors into safe HTTP responses.
// Task processing itself is asynchronous; task creation returns 202 and
// clients poll the task resource for the outcome.
package api
