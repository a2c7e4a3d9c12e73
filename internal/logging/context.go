// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// scope is the set of IDs a context carries into log lines. It is copied
// on every change, so contexts never share a mutable value.
type scope struct {
	correlationID string
	requestID     string
	device        string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, edit func(*scope)) context.Context {
	s := scopeOf(ctx)
	edit(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// GenerateCorrelationID returns an 8 character ID for one polling cycle or
// request.
func GenerateCorrelationID() string {
	id := uuid.New()
	return id.String()[:8]
}

// GenerateRequestID returns a random UUID.
func GenerateRequestID() string {
	return uuid.NewString()
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.correlationID = id })
}

// ContextWithNewCorrelationID tags ctx with a freshly generated ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

func CorrelationIDFromContext(ctx context.Context) string {
	return scopeOf(ctx).correlationID
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

func RequestIDFromContext(ctx context.Context) string {
	return scopeOf(ctx).requestID
}

// ContextWithDevice tags ctx with the key of the device being followed.
func ContextWithDevice(ctx context.Context, key string) context.Context {
	return withScope(ctx, func(s *scope) { s.device = key })
}

func DeviceFromContext(ctx context.Context) string {
	return scopeOf(ctx).device
}

// Ctx returns the global logger with ctx's IDs attached.
//
//	logging.Ctx(ctx).Info().Msg("fetched reports")
//	// {"level":"info","request_id":"...","device":"abc","message":"fetched reports"}
func Ctx(ctx context.Context) *zerolog.Logger {
	l := CtxWith(ctx).Logger()
	return &l
}

// CtxWith is Ctx for callers that add fields of their own before building
// the logger. Empty IDs are left out.
func CtxWith(ctx context.Context) zerolog.Context {
	s := scopeOf(ctx)
	c := With()
	for _, f := range [...]struct{ key, val string }{
		{"correlation_id", s.correlationID},
		{"request_id", s.requestID},
		{"device", s.device},
	} {
		if f.val != "" {
			c = c.Str(f.key, f.val)
		}
	}
	return c
}
