package renderer

// Renderer options assembled by the command layer.
type Options struct {
	// Output dimensions.
	Width  int
	Height int

	// Frame index for offline animation rendering. Negative means
	// interactive: render forever and never upload.
	Frame int

	// Scene name used when composing the upload path.
	SceneName string

	// Base URL of the frame upload endpoint. Empty disables uploads even
	// when a frame index is set.
	UploadURL string

	// Local path the finished frame is written to when no upload endpoint
	// is configured.
	Out string

	// Substitute the debug tracer shader.
	Debug bool

	// Window title.
	Title string
}
