// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command vela is a script runner, REPL and heap-inspection tool for
// the VELA runtime.
//
// Usage:
//
//	vela run <script.js>
//	vela repl
//	vela dump <script.js>
//
// Grounded on probe-lang/cmd/probec/main.go's flag-parse-then-dispatch
// shape (no cobra/urfave in the teacher's own CLI), with an added REPL
// mode via github.com/peterh/liner (go-ethereum's own console package
// uses the same library for readline/history) and a `dump` mode
// printing heap diagnostics via github.com/olekukonko/tablewriter,
// mirroring go-ethereum's tabular debug dumps.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"

	vela "github.com/velajs/vela"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: vela run <script.js>")
			os.Exit(1)
		}
		runFile(os.Args[2])
	case "repl":
		repl()
	case "dump":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: vela dump <script.js>")
			os.Exit(1)
		}
		dump(os.Args[2])
	case "-version", "--version", "version":
		fmt.Printf("vela %s\n", version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vela <run|repl|dump> [args]")
}

func runFile(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	rt := vela.New(nil, nil)
	v, err := rt.RunScript(context.Background(), path, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(rt.FormatValue(v))
}

func repl() {
	rt := vela.New(nil, nil)
	ctx := context.Background()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Printf("vela %s — type .exit to quit\n", version)
	for {
		input, err := line.Prompt("vela> ")
		if err != nil {
			break
		}
		if input == ".exit" {
			break
		}
		line.AppendHistory(input)

		v, err := rt.RunScript(ctx, "<repl>", input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "uncaught: %v\n", err)
			continue
		}
		fmt.Println(rt.FormatValue(v))
	}
}

func dump(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	rt := vela.New(nil, nil)
	if _, err := rt.RunScript(context.Background(), path, string(src)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"metric", "value"})
	for _, row := range rt.HeapStats() {
		table.Append(row)
	}
	table.Render()
}
