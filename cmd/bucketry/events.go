package main

import (
	"context"
	"log/slog"

	"github.com/zoobzio/bucketry"
	"github.com/zoobzio/capitan"
)

type loggedSignal struct {
	signal capitan.Signal
	msg    string
	level  slog.Level
}

var loggedSignals = []loggedSignal{
	{bucketry.PutCompleted, "object stored", slog.LevelDebug},
	{bucketry.PutFailed, "object store failed", slog.LevelWarn},
	{bucketry.GetCompleted, "object fetched", slog.LevelDebug},
	{bucketry.GetFailed, "object fetch failed", slog.LevelWarn},
	{bucketry.DeleteCompleted, "object deleted", slog.LevelDebug},
	{bucketry.UploadCompleted, "bundle uploaded", slog.LevelInfo},
	{bucketry.UploadFailed, "bundle upload failed", slog.LevelError},
	{bucketry.FetchCompleted, "bundle fetched", slog.LevelInfo},
	{bucketry.FetchFailed, "bundle fetch failed", slog.LevelError},
}

// bridgeSignals logs bucketry signals to log. The returned func drains
// pending events and detaches the hooks.
func bridgeSignals(log *slog.Logger) func(context.Context) {
	closers := make([]func(context.Context), 0, len(loggedSignals))
	for _, ls := range loggedSignals {
		l := capitan.Hook(ls.signal, func(ctx context.Context, e *capitan.Event) {
			fields := e.Fields()
			attrs := []any{
				"duration", bucketry.FieldDuration.ExtractFromFields(fields),
			}
			if v := bucketry.FieldBucket.ExtractFromFields(fields); v != "" {
				attrs = append(attrs, "bucket", v)
			}
			if v := bucketry.FieldKey.ExtractFromFields(fields); v != "" {
				attrs = append(attrs, "key", v)
			}
			if v := bucketry.FieldPrefix.ExtractFromFields(fields); v != "" {
				attrs = append(attrs, "prefix", v)
			}
			log.Log(ctx, ls.level, ls.msg, attrs...)
		})
		closers = append(closers, func(ctx context.Context) {
			_ = l.Drain(ctx)
			l.Close()
		})
	}
	return func(ctx context.Context) {
		for _, c := range closers {
			c(ctx)
		}
	}
}
