// Command bucketry resolves bucket URLs, validates image bundle documents, and
// moves image bundles in and out of buckets.
package main

import (
	"os"

	"github.com/zoobzio/bucketry/internal/config"
)

func main() {
	if err := newRootCmd(config.New()).Execute(); err != nil {
		os.Exit(1)
	}
}
