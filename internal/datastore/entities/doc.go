// Package entities defines the GORM models of the observation archive.
//
// Times are unix seconds stored as float64, always UTC. Metadata tables share the
// Meta column set: a key, one of a float or a string value, the time the fact
// applies from, and who wrote it.
package entities
