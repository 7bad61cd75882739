package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/wave-glsl/fspt/renderer"
)

func init() {
	// glfw event handling must run on the main thread.
	runtime.LockOSThread()
}

// Compile the requested scene and drive the progressive renderer, either
// interactively or to a single delivered frame.
func Render(ctx *cli.Context) error {
	setupLogging(ctx)

	width, height, err := parseRes(ctx.String("res"))
	if err != nil {
		return err
	}
	flags, debug, err := parseMode(ctx.String("mode"))
	if err != nil {
		return err
	}

	name := ctx.String("scene")
	result, err := compileScene(name, flags)
	if err != nil {
		return err
	}
	logger.Noticef("packed scene\n%s", result.Packed.Stats())

	r, err := renderer.New(result, renderer.Options{
		Width:     width,
		Height:    height,
		Frame:     ctx.Int("frame"),
		SceneName: sceneName(name),
		UploadURL: ctx.String("upload-url"),
		Out:       ctx.String("out"),
		Debug:     debug,
		Title:     fmt.Sprintf("fspt - %s", sceneName(name)),
	})
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		return err
	}
	logger.Noticef("last frame: %s", r.Stats())
	return nil
}
