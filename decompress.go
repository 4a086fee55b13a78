// Transport-level Content-Encoding reversal.
package main

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// decompress reverses the transport Content-Encoding applied to a
// response body. Unrecognized encodings (including an absent one) pass
// the bytes through unchanged rather than failing.
func decompress(content []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return out, nil

	case "deflate":
		if zr, err := zlib.NewReader(bytes.NewReader(content)); err == nil {
			out, rerr := io.ReadAll(zr)
			zr.Close()
			if rerr == nil {
				return out, nil
			}
		}
		// Some servers send raw deflate with no zlib header.
		fr := flate.NewReader(bytes.NewReader(content))
		defer fr.Close()
		out, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		return out, nil

	case "br":
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(content)))
		if err != nil {
			return nil, fmt.Errorf("brotli: %w", err)
		}
		return out, nil
	}

	return content, nil
}
