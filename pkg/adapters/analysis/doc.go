// Package analysis provides ports.Analyzer implementations that turn a website
// or profile URL into a coarse industry label.
package analysis
