// Package services provides shared helpers for the generation backends:
// error markers the lifecycle manager uses to decide between retry and
// halt, and context annotation for correlated logging.
package services
