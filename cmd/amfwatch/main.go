// Command amfwatch watches a spool directory for dropped .amf/.bin packet
// files — the shape a gateway integration test harness or a game backend's
// offline queue leaves behind — and decodes each as it appears, logging
// failures instead of crashing the watch loop.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	"github.com/ssungk/goamf/internal/logging"
	"github.com/ssungk/goamf/internal/pprint"
	"github.com/ssungk/goamf/pkg/remoting"
)

func main() {
	app := &cli.App{
		Name:  "amfwatch",
		Usage: "watch a spool directory for dropped AMF Remoting packet files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dir",
				Usage:    "spool directory to watch",
				Required: true,
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
		slog.Error("amfwatch exiting", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := logging.New(logging.Config{LogFile: c.String("log-file"), Debug: c.Bool("debug")})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := c.String("dir")
	if err := watcher.Add(dir); err != nil {
		return err
	}

	log.Info("watching spool directory", "dir", dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isPacketFile(event.Name) {
				continue
			}
			decodeDropped(log, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

func isPacketFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".amf", ".bin":
		return true
	default:
		return false
	}
}

func decodeDropped(log *slog.Logger, path string) {
	buf, err := os.ReadFile(path)
	if err != nil {
		log.Warn("failed to read dropped packet file", "path", path, "error", err)
		return
	}

	pkt, n, err := remoting.DecodePacket(buf, remoting.Options{Logger: remoting.NewLogger(log)})
	if err != nil {
		log.Warn("failed to decode dropped packet", "path", path, "error", err)
		return
	}
	if n != len(buf) {
		log.Warn("trailing bytes after packet", "path", path, "consumed", n, "total", len(buf))
	}

	log.Info("decoded dropped packet", "path", path, "headers", len(pkt.Headers), "messages", len(pkt.Messages))
	pprint.Packet(os.Stdout, pkt)
}
