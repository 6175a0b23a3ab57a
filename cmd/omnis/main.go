// Package main is the entry point for the Omnis QA Service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/adityatadimeti/omnis/cmd/omnis/app"
)

func main() {
	app.NewApp().Run()
}
