package cmd

import (
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
	"github.com/urfave/cli"
)

var logger = log.New("pathtracer")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	for _, module := range ctx.GlobalStringSlice("debug-module") {
		log.SetModuleLevel(module, log.Debug)
	}
}
