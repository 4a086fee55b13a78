// webfetch: fetch one or more URLs and render the content as text,
// pretty-printed JSON, or extracted HTML text, or save the raw bytes
// to files.
//
//	webfetch [flags] <url> [<url>...]
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// logger carries diagnostics to stderr. Result output goes to stdout;
// the per-URL error lines are written to stderr directly so scripts can
// rely on their exact format.
var logger = zerolog.New(io.Discard)

func setupLogger(w io.Writer, silent, verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if silent {
		level = zerolog.ErrorLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

// cliConfig holds parsed command-line options.
type cliConfig struct {
	showHeaders  bool
	raw          bool
	asJSON       bool
	method       string
	data         string
	headerFlags  []string
	timeoutSecs  int
	maxSize      string
	output       string
	userAgent    string
	input        string
	readable     bool
	markdown     bool
	impersonate  bool
	proxy        string
	blockPrivate bool
	silent       bool
	verbose      bool
}

var validMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
	"HEAD":   true,
}

// exitCodeError carries a process exit status through cobra's error
// path without printing an extra message.
type exitCodeError int

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func newRootCmd(cfg *cliConfig) *cobra.Command {
	defs := loadEnvDefaults()

	cmd := &cobra.Command{
		Use:   "webfetch [flags] <url> [<url>...]",
		Short: "Fetch and extract content from web pages",
		Example: `  webfetch https://example.com
  webfetch https://api.example.com/data --json
  webfetch https://example.com --headers --raw
  webfetch https://example.com --output page.html
  webfetch https://api.example.com --method POST --data '{"key":"value"}'
  webfetch https://example.com --header "Authorization: Bearer token"
  webfetch https://example.com https://example.org`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(cmd.ErrOrStderr(), cfg.silent, cfg.verbose)
			return runCLI(cmd.Context(), cfg, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.BoolVar(&cfg.showHeaders, "headers", false, "Show response headers")
	f.BoolVar(&cfg.raw, "raw", false, "Don't extract text from HTML, show raw content")
	f.BoolVar(&cfg.asJSON, "json", false, "Output as JSON")
	f.StringVar(&cfg.method, "method", "GET", "HTTP method (GET, POST, PUT, DELETE, PATCH, HEAD)")
	f.StringVar(&cfg.data, "data", "", "Request body for POST/PUT/PATCH")
	f.StringArrayVar(&cfg.headerFlags, "header", nil, "Custom request header ('Name: Value'), repeatable")
	f.IntVar(&cfg.timeoutSecs, "timeout", defs.TimeoutSeconds, "Request timeout in seconds")
	f.StringVar(&cfg.maxSize, "max-size", defs.MaxSize, "Maximum download size (K/KB/M/MB/G/GB suffixes or bytes)")
	f.StringVarP(&cfg.output, "output", "o", "", "Save content to file instead of stdout")
	f.StringVar(&cfg.userAgent, "user-agent", defs.UserAgent, "Custom User-Agent string")
	f.StringVarP(&cfg.input, "input", "i", "", "File with URLs to fetch, one per line")
	f.BoolVar(&cfg.readable, "readable", false, "Extract the main article from HTML before rendering")
	f.BoolVar(&cfg.markdown, "markdown", false, "Render HTML content as Markdown")
	f.BoolVar(&cfg.impersonate, "impersonate", false, "Use a browser TLS fingerprint for HTTPS requests")
	f.StringVar(&cfg.proxy, "proxy", defs.Proxy, "HTTP proxy URL for outgoing requests")
	f.BoolVar(&cfg.blockPrivate, "block-private", false, "Refuse connections to private/local addresses")
	f.BoolVar(&cfg.silent, "silent", false, "Suppress diagnostics except errors")
	f.BoolVar(&cfg.verbose, "verbose", false, "Enable debug diagnostics")

	return cmd
}

// runCLI validates options, runs the batch, and maps the batch outcome
// to an exit status. Malformed input (bad header, bad size, unknown
// method) fails here, before any network activity.
func runCLI(ctx context.Context, cfg *cliConfig, args []string, stdout, stderr io.Writer) error {
	urls := args
	if cfg.input != "" {
		fileURLs, err := readURLFile(cfg.input)
		if err != nil {
			return fmt.Errorf("reading %s: %w", cfg.input, err)
		}
		urls = append(urls, fileURLs...)
	}
	if len(urls) == 0 {
		return errors.New("at least one URL is required")
	}

	headers, err := parseHeaderFlags(cfg.headerFlags)
	if err != nil {
		return err
	}

	maxSize, err := parseSize(cfg.maxSize)
	if err != nil {
		return err
	}

	method := strings.ToUpper(cfg.method)
	if !validMethods[method] {
		return fmt.Errorf("unsupported method: %s", cfg.method)
	}

	var body []byte
	if cfg.data != "" {
		body = []byte(cfg.data)
	}

	fopts := fetchOptions{
		Method:       method,
		Headers:      headers,
		Body:         body,
		Timeout:      time.Duration(cfg.timeoutSecs) * time.Second,
		MaxSize:      maxSize,
		UserAgent:    cfg.userAgent,
		Proxy:        cfg.proxy,
		Impersonate:  cfg.impersonate,
		BlockPrivate: cfg.blockPrivate,
	}
	ropts := renderOptions{
		ShowHeaders: cfg.showHeaders,
		Raw:         cfg.raw,
		AsJSON:      cfg.asJSON,
		Readable:    cfg.readable,
		Markdown:    cfg.markdown,
	}

	b := runBatch(ctx, urls, fopts, ropts, cfg.output, stdout)
	if err := ctx.Err(); err != nil {
		return err // interrupted; run maps this to exit 130
	}
	if code := b.flush(cfg.asJSON, stdout, stderr); code != 0 {
		return exitCodeError(code)
	}
	return nil
}

// parseHeaderFlags converts repeated --header values into a header map.
// Caller-supplied values later take precedence over the defaults.
func parseHeaderFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(flags))
	for _, h := range flags {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q (expected 'Name: Value')", errInvalidHeader, h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// readURLFile reads a file containing one URL per line, skipping blanks
// and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// run executes the CLI and returns the process exit code: 0 success,
// 1 total failure (including malformed input), 2 partial batch failure,
// 130 user interruption.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := &cliConfig{}
	cmd := newRootCmd(cfg)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "\nAborted.")
		return 130
	}
	if err == nil {
		return 0
	}
	var code exitCodeError
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
