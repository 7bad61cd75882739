package writer

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/scene"
)

type zipWriter struct {
	logger      log.Logger
	archivePath string
}

// Create a writer that archives a packed scene to the given path.
func newZipWriter(archivePath string) *zipWriter {
	return &zipWriter{
		logger:      log.New("zipWriter"),
		archivePath: archivePath,
	}
}

// Archive a packed scene: one little-endian float32 file per buffer plus the
// shader defines, for offline inspection of compiler output.
func WriteArchive(ps *scene.PackedScene, archivePath string) error {
	return newZipWriter(archivePath).write(ps)
}

func (w *zipWriter) write(ps *scene.PackedScene) error {
	w.logger.Noticef("writing packed scene to %s", w.archivePath)
	start := time.Now()

	zipFile, err := os.Create(w.archivePath)
	if err != nil {
		return fmt.Errorf("writer: could not create archive: %v", err)
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	for _, b := range []*scene.Buffer{&ps.Bvh, &ps.Triangles, &ps.Normals, &ps.UVs, &ps.Materials, &ps.Lights} {
		cw, err := zw.Create(b.Name + ".f32")
		if err != nil {
			return err
		}
		if err = binary.Write(cw, binary.LittleEndian, b.Data); err != nil {
			return fmt.Errorf("writer: could not serialize %s buffer: %v", b.Name, err)
		}
	}

	cw, err := zw.Create("defines.txt")
	if err != nil {
		return err
	}
	if _, err = cw.Write([]byte(strings.Join(ps.Defines, "\n"))); err != nil {
		return err
	}

	w.logger.Noticef("archived packed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}
