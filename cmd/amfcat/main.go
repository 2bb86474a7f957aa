// Command amfcat reads a Remoting packet or a bare AMF0/AMF3 value from a
// file or stdin, decodes it, and pretty-prints the resulting value tree —
// the inspection tool a developer debugging traffic against a Red5 or
// AMFPHP-style gateway would reach for.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ssungk/goamf/internal/logging"
	"github.com/ssungk/goamf/internal/pprint"
	"github.com/ssungk/goamf/pkg/amf"
	"github.com/ssungk/goamf/pkg/remoting"
)

func main() {
	app := &cli.App{
		Name:  "amfcat",
		Usage: "decode and pretty-print an AMF0/AMF3 value or a Remoting packet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "path to read; defaults to stdin",
			},
			&cli.BoolFlag{
				Name:  "remoting",
				Usage: "treat the input as a Remoting packet rather than a bare value",
			},
			&cli.StringFlag{
				Name:  "object-encoding",
				Value: "amf0",
				Usage: "bare value mode only: amf0, amf3, or auto",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "rotate diagnostics into this file in addition to stderr",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug-level diagnostics",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "amfcat:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logging.New(logging.Config{LogFile: c.String("log-file"), Debug: c.Bool("debug")})

	buf, err := readInput(c.String("file"))
	if err != nil {
		return fmt.Errorf("amfcat: reading input: %w", err)
	}

	if c.Bool("remoting") {
		pkt, n, err := remoting.DecodePacket(buf, remoting.Options{Logger: remoting.NewLogger(slog.Default())})
		if err != nil {
			return fmt.Errorf("amfcat: decoding packet: %w", err)
		}
		if n != len(buf) {
			slog.Warn("trailing bytes after packet", "consumed", n, "total", len(buf))
		}
		pprint.Packet(os.Stdout, pkt)
		return nil
	}

	opts := amf.Options{ObjectEncoding: parseObjectEncoding(c.String("object-encoding"))}
	v, n, err := amf.Decode(buf, opts)
	if err != nil {
		return fmt.Errorf("amfcat: decoding value: %w", err)
	}
	if n != len(buf) {
		slog.Warn("trailing bytes after value", "consumed", n, "total", len(buf))
	}
	pprint.Value(os.Stdout, v)
	return nil
}

func parseObjectEncoding(s string) amf.ObjectEncoding {
	switch s {
	case "amf3":
		return amf.ObjectEncodingAMF3
	case "auto":
		return amf.ObjectEncodingAuto
	default:
		return amf.ObjectEncodingAMF0
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
