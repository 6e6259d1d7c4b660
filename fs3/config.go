package fs3

import (
	"fmt"
	"log/slog"

	"github.com/tobiasfamos/fs3/proto"
)

const (
	// DefaultMaxFiles is the size of the file table.
	DefaultMaxFiles = 1024
	// DefaultMaxNameLength is the longest accepted file name in bytes.
	DefaultMaxNameLength = 128
)

// Config provides parameters used to initialize a Driver.
type Config struct {
	MaxFiles      int            // Capacity of the file table; 0 means DefaultMaxFiles
	MaxNameLength int            // Longest file name in bytes; 0 means DefaultMaxNameLength
	Geometry      proto.Geometry // Controller coordinate space; zero means proto.DefaultGeometry
	Logger        *slog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.MaxFiles == 0 {
		c.MaxFiles = DefaultMaxFiles
	}
	if c.MaxNameLength == 0 {
		c.MaxNameLength = DefaultMaxNameLength
	}
	if c.Geometry == (proto.Geometry{}) {
		c.Geometry = proto.DefaultGeometry
	}

	if c.MaxFiles < 0 || c.MaxFiles > 1<<15 {
		return c, fmt.Errorf("'MaxFiles' must be between 1 and %d", 1<<15)
	}
	if c.MaxNameLength < 0 {
		return c, fmt.Errorf("'MaxNameLength' must be positive")
	}
	if !c.Geometry.Valid() {
		return c, fmt.Errorf("'Geometry' %+v is not valid", c.Geometry)
	}

	return c, nil
}
