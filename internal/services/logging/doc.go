// Package logging builds the process-wide slog pipeline: pretty console
// output, an optional JSON file sink, and an optional rate-limited Discord
// channel forwarder for warnings and errors. The active handler can be
// swapped at runtime when the configuration changes.
package logging
