// Command snapshot generates, inspects and serves snapshot files with the
// in-process worker runtime.
//
//	snapshot generate default.snapshot --entities 10
//	snapshot dump default.snapshot --format json
//	snapshot browse default.snapshot --bundle schema.json
//	snapshot connect default.snapshot --params worker.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
