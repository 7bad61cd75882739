package cmd

import (
	"errors"
	"strings"

	"github.com/urfave/cli"

	"github.com/wave-glsl/fspt/scene/writer"
)

// Compile scenes and archive their packed buffers next to the descriptors.
func Compile(ctx *cli.Context) error {
	setupLogging(ctx)

	flags, _, err := parseMode(ctx.String("mode"))
	if err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene argument")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		name := ctx.Args().Get(idx)
		result, err := compileScene(name, flags)
		if err != nil {
			return err
		}
		logger.Noticef("packed scene\n%s", result.Packed.Stats())

		archive := strings.TrimSuffix(scenePath(name), ".json") + ".zip"
		if err = writer.WriteArchive(result.Packed, archive); err != nil {
			return err
		}
	}
	return nil
}
