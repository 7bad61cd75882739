package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/wave-glsl/fspt/cmd"
	"github.com/wave-glsl/fspt/log"
)

var logger = log.New("fspt")

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "fspt"
	app.Usage = "progressive GPU path tracer"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile scene descriptors into packed archives",
			Description: `
Parse each scene descriptor, load its meshes and textures, build the bounding
volume hierarchy and pack everything into the flat GPU buffer layout.

The packed buffers are written to a zip archive next to the descriptor for
offline inspection.`,
			ArgsUsage: "scene1 scene2.json ...",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode",
					Usage: "underscore-joined feature tags (nee, alpha)",
				},
			},
			Action: cmd.Compile,
		},
		{
			Name:  "render",
			Usage: "render a scene",
			Description: `
Compile the scene and render it progressively. With frame set to -1 an
interactive window keeps accumulating samples; with frame >= 0 the render
stops at the sample budget and the finished image is uploaded or written
to disk.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "res",
					Usage: "output resolution as WxH or a single square dimension",
				},
				cli.IntFlag{
					Name:  "frame",
					Value: -1,
					Usage: "frame index for offline rendering, -1 for interactive",
				},
				cli.StringFlag{
					Name:  "scene",
					Value: "bunny",
					Usage: "scene name resolving to scene/<name>.json, or a descriptor path",
				},
				cli.StringFlag{
					Name:  "mode",
					Usage: "underscore-joined feature tags (test, nee, alpha)",
				},
				cli.StringFlag{
					Name:  "upload-url",
					Usage: "base URL finished frames are POSTed to",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "image filename when no upload endpoint is set",
				},
			},
			Action: cmd.Render,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
