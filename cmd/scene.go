package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wave-glsl/fspt/asset"
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/scene/compiler"
)

const defaultRes = 512

// Resolve a scene argument. An explicit .json path is used as-is; a bare
// name maps to scene/<name>.json.
func scenePath(name string) string {
	if strings.HasSuffix(name, ".json") {
		return name
	}
	return fmt.Sprintf("scene/%s.json", name)
}

// The bare scene name used when composing upload paths and window titles.
func sceneName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), ".json")
}

// Parse a resolution spec: "WxH", a single square dimension, or empty for
// the default.
func parseRes(res string) (int, int, error) {
	if res == "" {
		return defaultRes, defaultRes, nil
	}

	if parts := strings.Split(res, "x"); len(parts) == 2 {
		w, errW := strconv.Atoi(parts[0])
		h, errH := strconv.Atoi(parts[1])
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return 0, 0, fmt.Errorf("cmd: invalid resolution %q", res)
		}
		return w, h, nil
	}

	n, err := strconv.Atoi(res)
	if err != nil || n <= 0 {
		return 0, 0, fmt.Errorf("cmd: invalid resolution %q", res)
	}
	return n, n, nil
}

// Parse an underscore-joined mode tag list into compiler flags plus the
// debug shader toggle.
func parseMode(mode string) (compiler.Flags, bool, error) {
	var flags compiler.Flags
	var debug bool

	for _, tag := range strings.Split(mode, "_") {
		switch tag {
		case "":
		case "test":
			debug = true
		case "nee":
			flags.NextEvent = true
		case "alpha":
			flags.Alpha = true
		default:
			return flags, false, fmt.Errorf("cmd: unknown mode tag %q", tag)
		}
	}
	return flags, debug, nil
}

// Load a scene descriptor and compile it into the packed representation.
func compileScene(name string, flags compiler.Flags) (*compiler.Result, error) {
	res, err := asset.Open(scenePath(name), nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	desc, err := scene.ParseDescriptor(res)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(desc, res, flags)
}
