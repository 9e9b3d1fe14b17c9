// Package logging wraps log/slog with the structured field conventions used
// across showrunner: standardized keys for components, episode and scene
// numbers, correlation identifiers, and a console handler for interactive
// output alongside a JSON handler for log files.
package logging
