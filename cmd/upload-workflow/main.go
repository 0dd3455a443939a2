// Command upload-workflow forwards its arguments to "confluencectl workflow".
//
//	upload-workflow <md-path> <title> <parent-id> <space-key> [token] [domain] [--update-if-exists]
package main

import "github.com/yourorg/confluencectl/internal/launcher"

func main() {
	launcher.Main("workflow")
}
