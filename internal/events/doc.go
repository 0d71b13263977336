// Package events provides a minimal in-process event system that decouples
// task submission from task dispatch.
//
// The service layer emits a TaskRequestEvent when a scrape task is created;
// a handler owned by the task package reacts by publishing the task to the
// broker immediately, without waiting for the next dispatcher scan. Emitters
// and handlers only share the types in this package, so neither layer imports
// the other.
package events
