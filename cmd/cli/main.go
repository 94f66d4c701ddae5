package main

import (
	"github.com/mchmarny/credrank/pkg/cli"
)

func main() {
	cli.Execute()
}
