// Package zlog provides a github.com/rs/zerolog implementation of
// warden.Logger, for callers who already standardize on zerolog for
// structured logging.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package zlog

import (
	"github.com/agilira/warden"
	"github.com/rs/zerolog"
)

// Logger adapts a zerolog.Logger to warden.Logger.
type Logger struct {
	log zerolog.Logger
}

// New wraps an existing zerolog.Logger.
func New(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

// Debug implements warden.Logger.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.event(l.log.Debug(), msg, keyvals)
}

// Info implements warden.Logger.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.event(l.log.Info(), msg, keyvals)
}

// Warn implements warden.Logger.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.event(l.log.Warn(), msg, keyvals)
}

// Error implements warden.Logger.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.event(l.log.Error(), msg, keyvals)
}

// event attaches an odd-length-tolerant run of key/value pairs to e
// before firing it. An unpaired trailing key is logged under "extra"
// rather than dropped silently.
func (l *Logger) event(e *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keyvals[i+1])
	}
	if len(keyvals)%2 == 1 {
		e = e.Interface("extra", keyvals[len(keyvals)-1])
	}
	e.Msg(msg)
}

var _ warden.Logger = (*Logger)(nil)
