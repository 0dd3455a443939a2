// Command upload-csf forwards its arguments to "confluencectl upload".
//
//	upload-csf <csf-path> <title> <parent-id> <space-key> [token] [domain] [--update-if-exists] [--search-root dir] [--base-path /]
package main

import "github.com/yourorg/confluencectl/internal/launcher"

func main() {
	launcher.Main("upload")
}
