// Package main is the caller-facing inkbridge CLI: the MCP front door and a
// one-shot request sender.
package main

func main() {
	Execute()
}
