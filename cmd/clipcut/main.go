package main

import "github.com/dkotenko/clipcut/internal/cli"

func main() {
	cli.Main()
}
