// Package extraction defines the extractor capability consumed by the task
// pipeline: given fetched page content, produce structured venue data
// conforming to the fixed result schema.
package extraction
