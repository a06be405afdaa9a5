package main

import (
	"github.com/alpinemetrics/apkmon/pkg/cli"
)

func main() {
	cli.Execute()
}
