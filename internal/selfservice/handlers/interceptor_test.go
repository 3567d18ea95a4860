package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptors(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	tests := []struct {
		name         string
		handler      grpc.UnaryHandler
		expectedCode codes.Code
		expectedLog  string
		expectedLvl  zapcore.Level
	}{
		{
			name:         "success",
			handler:      func(context.Context, interface{}) (interface{}, error) { return "ok", nil },
			expectedCode: codes.OK,
			expectedLog:  "gRPC request",
			expectedLvl:  zapcore.DebugLevel,
		},
		{
			name: "client error",
			handler: func(context.Context, interface{}) (interface{}, error) {
				return nil, status.Error(codes.NotFound, "unknown service")
			},
			expectedCode: codes.NotFound,
			expectedLog:  "gRPC request",
			expectedLvl:  zapcore.DebugLevel,
		},
		{
			name: "plain error",
			handler: func(context.Context, interface{}) (interface{}, error) {
				return nil, errors.New("boom")
			},
			expectedCode: codes.Unknown,
			expectedLog:  "gRPC request",
			expectedLvl:  zapcore.ErrorLevel,
		},
		{
			name: "panic",
			handler: func(context.Context, interface{}) (interface{}, error) {
				panic("broken handler")
			},
			expectedCode: codes.Internal,
			expectedLog:  "Panic in gRPC handler",
			expectedLvl:  zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			logger := zap.New(core)

			// Recover runs inside Logging, as when chained by the server.
			recovering := UnaryRecover(logger)
			logging := UnaryLogging(logger)
			_, err := logging(context.Background(), nil, info,
				func(ctx context.Context, req interface{}) (interface{}, error) {
					return recovering(ctx, req, info, tt.handler)
				})

			assert.Equal(t, tt.expectedCode, status.Code(err))
			entries := logs.FilterMessage(tt.expectedLog).All()
			if assert.Len(t, entries, 1) {
				assert.Equal(t, tt.expectedLvl, entries[0].Level)
				assert.Equal(t, info.FullMethod, entries[0].ContextMap()["method"])
			}
		})
	}
}
