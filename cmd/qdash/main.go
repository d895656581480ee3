// Command qdash is a terminal dashboard for a remote quantum job queue.
//
// It polls the queue's /get_jobs endpoint, shows the jobs in a table next to
// a donut chart of their statuses, and can submit test jobs through the
// queue's creation endpoints. Run without arguments for the interactive
// dashboard; see `qdash --help` for the headless commands.
package main

import (
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
