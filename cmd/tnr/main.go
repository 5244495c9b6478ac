// Command tnr serves the test-case and test-run manager and administers its
// storage.
package main

import "github.com/mesh-intelligence/tnr/internal/cli"

func main() {
	cli.Execute()
}
