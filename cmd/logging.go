package cmd

import (
	"github.com/urfave/cli"

	"github.com/wave-glsl/fspt/log"
)

var logger = log.New("fspt")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
