package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/assetgw/internal/middleware"
	appErr "github.com/xxxsen/assetgw/internal/pkg/errors"
	"github.com/xxxsen/assetgw/internal/pkg/response"
)

// quotaResetHour is the UTC hour at which the remote daily quota resets.
const quotaResetHour = 9

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	kind := appErr.KindOf(err)
	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	}
	if kind == appErr.ErrInternal {
		logutil.GetLogger(c.Request.Context()).Error("request failed", fields...)
	} else {
		logutil.GetLogger(c.Request.Context()).Warn("request rejected", fields...)
	}

	switch kind {
	case appErr.ErrUnauthorized:
		response.Error(c, http.StatusUnauthorized, "Unauthorized")
	case appErr.ErrInvalid:
		response.Error(c, http.StatusBadRequest, err.Error())
	case appErr.ErrNotFound:
		response.ErrorWithMessage(c, http.StatusNotFound, "Not Found", err.Error())
	case appErr.ErrRateLimited:
		c.Header("Retry-After", strconv.Itoa(secondsUntilQuotaReset(time.Now())))
		response.ErrorWithMessage(c, http.StatusTooManyRequests, "Rate Limit Exceeded", err.Error())
	default:
		response.ErrorWithDetails(c, http.StatusInternalServerError, "Server error", err.Error())
	}
}

func secondsUntilQuotaReset(now time.Time) int {
	now = now.UTC()
	reset := time.Date(now.Year(), now.Month(), now.Day(), quotaResetHour, 0, 0, 0, time.UTC)
	if !reset.After(now) {
		reset = reset.Add(24 * time.Hour)
	}
	return int(reset.Sub(now).Seconds())
}
