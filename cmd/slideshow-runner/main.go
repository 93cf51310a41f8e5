// Package main is the entry point for slideshow-runner.
package main

import "github.com/sharkusmanch/slideshow-runner/internal/cli"

func main() {
	cli.Execute()
}
