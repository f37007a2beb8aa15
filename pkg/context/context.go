// Package context carries build tracing values through handler calls
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey int

// Context keys for build tracing. Distinct values of an unexported type, so
// they never collide with each other or with other packages' keys.
const (
	buildIDKey contextKey = iota
	manifestKey
	operationKey
	startTimeKey
)

const (
	unknownBuild     = "unknown-build"
	unknownOperation = "unknown-operation"
)

// WithBuildID adds a build ID to the context
func WithBuildID(parent context.Context, buildID string) context.Context {
	if buildID == "" {
		buildID = GenerateBuildID()
	}
	return context.WithValue(parent, buildIDKey, buildID)
}

// GetBuildID retrieves the build ID from context
func GetBuildID(ctx context.Context) string {
	if id, ok := ctx.Value(buildIDKey).(string); ok && id != "" {
		return id
	}
	return unknownBuild
}

// WithManifest records the root manifest being built
func WithManifest(parent context.Context, manifest string) context.Context {
	return context.WithValue(parent, manifestKey, manifest)
}

// GetManifest retrieves the root manifest, or "" when none is set
func GetManifest(ctx context.Context) string {
	if m, ok := ctx.Value(manifestKey).(string); ok {
		return m
	}
	return ""
}

// WithOperation adds an operation name (handle, finalize, ...) to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		return op
	}
	return unknownOperation
}

// WithStartTime adds the build start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the build start time; ok is false when unset
func GetStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	return t, ok
}

// GetDuration returns the time elapsed since the start time, or 0 when unset
func GetDuration(ctx context.Context) time.Duration {
	start, ok := GetStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// GenerateBuildID creates a new unique build ID
func GenerateBuildID() string {
	return "build_" + uuid.New().String()
}

// EnrichContext adds a build ID (if missing) and the start time
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if GetBuildID(ctx) == unknownBuild {
		ctx = WithBuildID(ctx, GenerateBuildID())
	}
	return WithStartTime(ctx, time.Now())
}

// HasBuildID reports whether a build ID has been attached
func HasBuildID(ctx context.Context) bool {
	return GetBuildID(ctx) != unknownBuild
}

// HasOperation reports whether an operation has been attached
func HasOperation(ctx context.Context) bool {
	return GetOperation(ctx) != unknownOperation
}
