package main

import "github.com/leandrodaf/keysync/internal/cli"

func main() {
	cli.Execute()
}
