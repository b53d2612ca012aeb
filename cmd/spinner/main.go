package main

import "github.com/vietddude/spinner/internal/cli"

func main() {
	cli.Execute()
}
