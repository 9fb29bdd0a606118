package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/intellitrace_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyScanId        = appctx.ContextKeyScanId
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetScanIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyScanId)
}

func SetScanIdInContext(ctx context.Context, scanId string) context.Context {
	return appctx.Set(ctx, ContextKeyScanId, scanId)
}
