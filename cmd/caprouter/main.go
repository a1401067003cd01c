// Command caprouter runs the capability router's reference HTTP surface:
// a tool registry, policy engine, and planner wired together behind
// /tools, /tools/validate, /plan, /trace/:id, and /metrics.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the CLI entrypoint, split out from main for testability.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runServe(stdout, stderr)
	}

	switch args[1] {
	case "serve":
		return runServe(stdout, stderr)
	case "validate":
		return runValidate(args[2:], stdout, stderr)
	case "health":
		return runHealth(stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "caprouter - capability router reference server")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: caprouter <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the HTTP surface (default)")
	fmt.Fprintln(w, "  validate   Validate a tool or registry document file")
	fmt.Fprintln(w, "  health     Check a running server's /health endpoint")
	fmt.Fprintln(w, "  help       Show this help")
}
