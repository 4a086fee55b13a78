// Batch orchestration: sequential fetch/render over the input URLs with
// per-URL failure isolation and aggregate exit-code semantics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// batchRun accumulates per-URL outcomes for one invocation. URLs are
// processed strictly in input order; output order mirrors input order.
type batchRun struct {
	results []*renderedOutput
	errors  []string
	saved   int
}

// runBatch drives the fetcher and renderer over urls. A single URL's
// failure is recorded and never aborts the batch; an interrupt stops
// the loop, leaving already-written files intact.
func runBatch(ctx context.Context, urls []string, fopts fetchOptions, ropts renderOptions, outputPath string, stdout io.Writer) *batchRun {
	b := &batchRun{}
	multi := len(urls) > 1

	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}

		res, err := fetchURL(ctx, rawURL, fopts)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			b.errors = append(b.errors, fmt.Sprintf("Error fetching %s: %v", rawURL, err))
			continue
		}

		if outputPath != "" {
			// Save mode writes raw bytes verbatim, bypassing the renderer.
			path := savePath(outputPath, b.saved, multi)
			if err := os.WriteFile(path, res.Content, 0644); err != nil {
				b.errors = append(b.errors, fmt.Sprintf("Error fetching %s: %v", rawURL, err))
				continue
			}
			fmt.Fprintf(stdout, "Saved to: %s\n", path)
			b.saved++
			continue
		}

		b.results = append(b.results, render(res, ropts))
	}
	return b
}

// savePath disambiguates the output path when more than one URL targets
// the same destination: a zero-based index goes before the file
// extension, or is appended when there is none.
func savePath(path string, index int, multi bool) string {
	if !multi {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%d%s", base, index, ext)
}

// flush prints buffered results and recorded errors and derives the
// exit status: 0 when nothing failed, 1 when every URL failed, 2 on
// partial failure.
func (b *batchRun) flush(asJSON bool, stdout, stderr io.Writer) int {
	if len(b.results) > 0 {
		if asJSON {
			b.printJSON(stdout)
		} else {
			divider := "\n" + strings.Repeat("=", resultDividerWidth) + "\n"
			for i, r := range b.results {
				if i > 0 {
					fmt.Fprintln(stdout, divider)
				}
				fmt.Fprintln(stdout, r.Text)
			}
		}
	}

	for _, line := range b.errors {
		fmt.Fprintln(stderr, line)
	}

	switch {
	case len(b.errors) == 0:
		return 0
	case len(b.results)+b.saved == 0:
		return 1
	default:
		return 2
	}
}

// printJSON emits a single payload object, or one JSON array combining
// all payloads when the batch produced multiple results.
func (b *batchRun) printJSON(stdout io.Writer) {
	var data []byte
	var err error
	if len(b.results) == 1 {
		data, err = json.MarshalIndent(b.results[0].Payload, "", "  ")
	} else {
		payloads := make([]*jsonPayload, len(b.results))
		for i, r := range b.results {
			payloads[i] = r.Payload
		}
		data, err = json.MarshalIndent(payloads, "", "  ")
	}
	if err != nil {
		logger.Error().Err(err).Msg("encoding results")
		return
	}
	fmt.Fprintln(stdout, string(data))
}
