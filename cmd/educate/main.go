// Copyright 2025 The Educate Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the educate search client: a MessagePack IPC server
for editor or UI frontends, and a CLI [DBG] for trying things out by hand.

Note: This is a BETA release. APIs and functionality may rapidly change.

Educate sits in front of an educational search server. It completes the word
being typed from a dictionary and the user's own past queries, corrects typos
before searching, merges ranked results from the local index with meta search
engines, groups the browsing history and keeps the search configuration valid.

# Usage

Start the IPC server with default settings:

	educate serve

Use a custom config file and enable debug logging:

	educate --config ./educate.toml -d serve

Run the interactive CLI:

	educate repl

One-off commands:

	educate search "binary trees"
	educate history --sort term --filter bin

# Configuration

The TOML config is created with defaults on first run:

	[backend]
	base_url = "http://localhost:9797"
	results_timeout_sec = 300

	[dict]
	source = "https://example.org/words.json"

	[storage]
	driver = "badger"

	[summary]
	enabled = false
	driver = "ollama"

# IPC Protocol

Requests and responses are MessagePack maps over stdin/stdout:

	{"id": "r1", "op": "complete", "text": "binary tr"}
	{"id": "r1", "s": [{"w": "trees", "r": 1}], "p": "trees", "c": 1, "t": 42}
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
)

const (
	Version = "0.3.0-beta"
	AppName = "educate"
	gh      = "https://github.com/bastiangx/educate"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main only manages the flow; the commands live in commands.go.
func main() {
	sigHandler()

	app := &cli.App{
		Name:    AppName,
		Usage:   "educational search client: completion, correction, search and history",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the TOML config file",
				EnvVars: []string{"EDUCATE_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "toggle debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				log.SetLevel(log.DebugLevel)
				log.SetReportTimestamp(true)
			} else {
				log.SetLevel(log.WarnLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			replCommand(),
			searchCommand(),
			historyCommand(),
			versionCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("educate failed", "err", err)
	}
}
