/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package compress

import (
	"fmt"
	"io"
)

// Level represents a stream compression level.
type Level int

const (
	// NoCompression represents no stream compression.
	NoCompression Level = iota

	// DefaultCompression represents 'default' stream compression level.
	DefaultCompression

	// BestCompression represents 'best for size' stream compression level.
	BestCompression

	// SpeedCompression represents 'best for speed' stream compression level.
	SpeedCompression
)

// String returns CompressionLevel string representation.
func (cl Level) String() string {
	switch cl {
	case DefaultCompression:
		return "default"
	case BestCompression:
		return "best"
	case SpeedCompression:
		return "speed"
	}
	return ""
}

// UnmarshalYAML satisfies Unmarshaler interface.
func (cl *Level) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var level string
	if err := unmarshal(&level); err != nil {
		return err
	}
	switch level {
	case "":
		*cl = NoCompression
	case "default":
		*cl = DefaultCompression
	case "best":
		*cl = BestCompression
	case "speed":
		*cl = SpeedCompression
	default:
		return fmt.Errorf("compress: unrecognized compression level: %s", level)
	}
	return nil
}

// Compressor represents a stream compression method.
type Compressor interface {
	io.ReadWriter
}
