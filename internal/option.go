package internal

import (
	"io"

	"github.com/starford/geocore/internal/uploader"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mode      Mode
	logOutput io.Writer
	onUpload  uploader.Callback
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects what Run does. The default is ModeWatch.
func WithMode(mode Mode) Option {
	return func(a *application) {
		a.mode = mode
	}
}

// WithLogOutput redirects the JSON log. By default watch mode logs to
// stdout and MCP mode to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithUploadCallback is called after every upload attempt in watch mode.
func WithUploadCallback(cb uploader.Callback) Option {
	return func(a *application) {
		a.onUpload = cb
	}
}
