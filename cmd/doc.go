// Package cmd wires the cobra-based CLI commands for confluencectl.
//
// Commands parse flags and positionals, resolve the active profile and
// delegate to the internal packages. Results go to the command's stdout;
// diagnostics go to the structured logger on stderr.
package cmd
