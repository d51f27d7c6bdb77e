package main

import (
	"flag"

	"github.com/phumiphatauk/tinystore/cmd"
)

func main() {
	flag.Parse()

	cmd.Execute()
}
