/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package compress

import (
	"compress/zlib"
	"io"
)

// ZlibCompressor represents zlib stream compressor.
type ZlibCompressor struct {
	level int
	w     io.Writer
	r     io.Reader
	zw    *zlib.Writer
	zr    io.Reader
}

// NewZlibCompressor returns a new zlib compression method.
func NewZlibCompressor(reader io.Reader, writer io.Writer, level Level) *ZlibCompressor {
	z := &ZlibCompressor{
		w: writer,
		r: reader,
	}
	switch level {
	case DefaultCompression:
		z.level = zlib.DefaultCompression
	case BestCompression:
		z.level = zlib.BestCompression
	case SpeedCompression:
		z.level = zlib.BestSpeed
	default:
		z.level = int(level)
	}
	return z
}

// Write compresses and writes p to the underlying writer, flushing after
// every call so the peer never stalls on a partial zlib block.
func (z *ZlibCompressor) Write(p []byte) (int, error) {
	if z.zw == nil {
		zw, err := zlib.NewWriterLevel(z.w, z.level)
		if err != nil {
			return 0, err
		}
		z.zw = zw
	}
	defer func() { _ = z.zw.Flush() }()
	return z.zw.Write(p)
}

// Read reads and decompresses bytes from the underlying reader.
// The zlib reader is initialized lazily, on first read, since zlib.NewReader
// blocks until the stream header arrives.
func (z *ZlibCompressor) Read(p []byte) (int, error) {
	if z.zr == nil {
		zr, err := zlib.NewReader(z.r)
		if err != nil {
			return 0, err
		}
		z.zr = zr
	}
	return z.zr.Read(p)
}
