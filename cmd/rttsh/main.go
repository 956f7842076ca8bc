package main

import (
	"github.com/robotalks/rtt.go/pkg/cli/sh"
	"github.com/robotalks/rtt.go/pkg/config"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
