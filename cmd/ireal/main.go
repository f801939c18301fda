// ireal - iReal Pro URL codec CLI tool
//
// Usage:
//
//	ireal decode [--format F] [--title T] [file|url]  Decode a URL into a document
//	ireal encode [--format F] [--scheme S] [file]     Encode a chart document as a URL
//	ireal split [--compression C] [--digest] [file]   Split irealb URLs into entry frames
//	ireal join [file]                                 Join entry frames back into URLs
//	ireal frames [file]                               Print entry frames
//	ireal roundtrip [--report FILE] [path...]         Check encode(decode(url)) == url over a corpus
//	ireal version                                     Print version info
//
// If no file is given, reads from stdin.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Neumenon/ireal/internal/config"
	"github.com/Neumenon/ireal/internal/corpus"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "decode":
		err = cmdDecode(args)
	case "encode":
		err = cmdEncode(args)
	case "split":
		err = cmdSplit(args)
	case "join":
		err = cmdJoin(args)
	case "frames":
		err = cmdFrames(args)
	case "roundtrip":
		err = cmdRoundtrip(args)
	case "version", "-v", "--version":
		fmt.Printf("ireal %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fatal("%s: %v", cmd, err)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `ireal - iReal Pro URL codec CLI tool

Usage:
  ireal decode [--format F] [--title T] [file|url]  Decode a URL into a document
  ireal encode [--format F] [--scheme S] [file]     Encode a chart document as a URL
  ireal split [--compression C] [--digest] [file]   Split irealb URLs into entry frames
  ireal join [file]                                 Join entry frames back into URLs
  ireal frames [file]                               Print entry frames
  ireal roundtrip [--report FILE] [path...]         Check encode(decode(url)) == url over a corpus
  ireal version                                     Print version info

Common options:
  --config FILE       YAML or JSONC config file (default: $IREAL_CONFIG)

Formats are json, yaml and cbor. Compression is none, zstd or lz4.
If no file is given, reads from stdin. Files ending in .zst are
decompressed. join writes canonical percent-escaping: the payload of
each URL is restored exactly, but a source URL that used lower-case
hex or unescaped bytes is not reproduced byte for byte.

Examples:
  ireal decode 'irealb://Blue%20Bossa%3D...' --format yaml
  ireal encode blues.yaml
  ireal split standards.txt --compression zstd > standards.frames
  ireal join standards.frames
  ireal roundtrip ~/charts
`)
}

// session is what every subcommand shares: its flags, the loaded
// config and a logger.
type session struct {
	flags      *pflag.FlagSet
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newSession(name string) *session {
	s := &session{flags: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	s.flags.StringVar(&s.configPath, "config", "", "config file (default: $"+config.EnvVar+")")
	return s
}

// parse parses args and loads the config.
func (s *session) parse(args []string) error {
	if err := s.flags.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(config.ResolvePath(s.configPath))
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.logger = newLogger(cfg.Log)
	return nil
}

// newLogger writes text records on a terminal and JSON otherwise,
// unless the config fixes the format.
func newLogger(c config.LogConfig) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	format := c.Format
	if format == "auto" {
		format = "json"
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// readInput returns the bytes of the single positional argument: a
// literal URL, a file, or stdin when absent or "-".
func readInput(args []string) ([]byte, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("unexpected argument: %s", args[1])
	}
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	if strings.HasPrefix(args[0], "irealb://") || strings.HasPrefix(args[0], "irealbook://") {
		return []byte(args[0]), nil
	}
	return corpus.ReadFile(args[0])
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ireal: "+format+"\n", args...)
	os.Exit(1)
}
