// Package main is the entrypoint for the inkbridge host daemon: the
// long-lived process that owns the live document and answers bridge
// requests on the local message bus.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/inkbridge/inkbridge/internal/server"
)

const usage = `Usage: inkbridge-host [command]
       inkbridge-host serve    Start the host daemon (bus, dispatcher, HTTP health).

Commands:
  serve    (default) Start the host daemon.
  help     Show this help.

Environment: BUS_URL, BUS_EMBEDDED, SESSION_ID, DOCUMENT_FILE, REQUEST_TIMEOUT,
EXEC_TIMEOUT, HTTP_ADDR, LOG_LEVEL. See internal/config for the full list.
`

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "", "serve":
		if err := server.Run(); err != nil {
			log.Fatalf("inkbridge-host: %v", err)
		}
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "inkbridge-host: unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}
