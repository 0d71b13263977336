// Package scraper defines the fetcher capability consumed by the task
// pipeline: given a venue URL, produce cleaned page text, candidate images
// and metadata for the extraction step.
package scraper
