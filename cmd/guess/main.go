package main

import "github.com/robalobadob/numguess/internal/cli"

func main() {
	cli.Execute()
}
