// Command sslprint fingerprints TLS clients from captured client hellos.
package main

import (
	"context"
	"os"

	"github.com/vulntor/sslprint/cmd/sslprint/commands"
)

func main() {
	os.Exit(commands.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
