package main

import "github.com/studypact/studypact/internal/cli"

func main() {
	cli.Execute()
}
