package main

import (
	"github.com/dyike/StockScout/internal/cli"
)

func main() {
	cli.Run()
}
