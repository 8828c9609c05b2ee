// Copyright (c) 2017 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	sdk "github.com/din14970/hyperspy"
	"github.com/din14970/hyperspy/environment"
	lib "github.com/din14970/hyperspy/library"
)

// Config defines logger properties
type Config struct {
	Level       string `env:"LOG_LEVEL"`
	Development bool   `env:"LOG_DEVELOPMENT"`
}

// Factory is the default logging wrapper that can create
// logger instances either for a given Context or context-less.
type Factory struct {
	Logger *zap.Logger
}

// NewFactory creates a new Factory.
func NewFactory() (Factory, error) {
	logger, err := zap.NewDevelopment(zap.AddCaller(), zap.AddCallerSkip(1))
	return Factory{Logger: logger}, err
}

// CreateFactory creates a Factory configured from the environment.
func CreateFactory(options ...environment.CreateENVOptions) (Factory, error) {
	env, err := environment.CreateENV(options...)
	if err != nil {
		return Factory{}, errors.Wrap(err, lib.StringTags("create log factory", "create env"))
	}
	config := Config{Level: "info", Development: true}
	if err = env.Parse(&config); err != nil {
		return Factory{}, errors.Wrap(err, lib.StringTags("create log factory", "parse env"))
	}
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return Factory{}, errors.Wrap(err, lib.StringTags("create log factory", "parse level"))
	}
	zc := zap.NewProductionConfig()
	if config.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		return Factory{}, errors.Wrap(err, lib.StringTags("create log factory", "build"))
	}
	return Factory{Logger: logger}, nil
}

// Bg creates a context-unaware logger.
func (b Factory) Bg() sdk.Logger {
	return logger{Logger: b.Logger}
}

// For returns a context-aware Logger. If the context
// contains an OpenTracing span, all logging calls are also
// echo-ed into the span.
func (b Factory) For(ctx context.Context) sdk.Logger {
	if span := opentracing.SpanFromContext(ctx); span != nil {
		return spanLogger{span: span, logger: b.Logger}
	}
	return b.Bg()
}

// With creates a child logger, and optionally adds some context fields to that logger.
func (b Factory) With(fields ...zapcore.Field) Factory {
	return Factory{Logger: b.Logger.With(fields...)}
}
