// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vlog is VELA's structured, leveled, key-value logger,
// grounded on go-ethereum's own `log.Info(msg, "k", v, ...)` house
// style (the teacher imports it as
// github.com/probeum/go-probeum/log, not itself in this pack, but
// backed by the same github.com/mattn/go-colorable +
// github.com/fatih/color pairing the teacher's go.mod carries).
package vlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

// Level is a log severity, ordered so a Logger can filter below its
// configured minimum.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// Logger writes leveled key-value records through a colourized writer
// when the destination is a terminal, plain text otherwise — the same
// choice go-colorable exists to make for a Windows/Unix-portable CLI.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	min Level
}

// New wraps w (typically os.Stderr passed through go-colorable) as a
// Logger filtering below min.
func New(w io.Writer, min Level) *Logger {
	return &Logger{out: w, min: min}
}

// Default returns a Logger over os.Stderr, auto-detecting terminal
// colour support via go-colorable the way the teacher's own `log`
// package does for its console backend.
func Default() *Logger {
	return New(colorable.NewColorable(os.Stderr), LevelInfo)
}

func (lg *Logger) log(level Level, msg string, kv ...any) {
	if level < lg.min {
		return
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	var b strings.Builder
	c := levelColor[level]
	b.WriteString(c.Sprintf("[%-5s]", level))
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	b.WriteByte('\n')
	io.WriteString(lg.out, b.String())
}

func (lg *Logger) Debug(msg string, kv ...any) { lg.log(LevelDebug, msg, kv...) }
func (lg *Logger) Info(msg string, kv ...any)  { lg.log(LevelInfo, msg, kv...) }
func (lg *Logger) Warn(msg string, kv ...any)  { lg.log(LevelWarn, msg, kv...) }
func (lg *Logger) Error(msg string, kv ...any) { lg.log(LevelError, msg, kv...) }
