// Copyright 2026 The Authsys Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"context"
	"log/slog"
)

// AccessEvent represents a security or compliance-relevant event
type AccessEvent struct {
	EventType  string
	UserID     string
	IPAddress  string
	Action     string
	Permission string
	Result     string // success, failure, denied
	Reason     string
	Metadata   map[string]any
}

// AccessLogger provides methods for logging authentication and
// authorization decisions at the transport boundary.
type AccessLogger struct {
	logger *slog.Logger
}

// NewAccessLogger creates a new access logger
func NewAccessLogger(logger *slog.Logger) *AccessLogger {
	return &AccessLogger{
		logger: logger.With(Component("access")),
	}
}

// Log logs an access event
func (a *AccessLogger) Log(ctx context.Context, event AccessEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.String("action", event.Action),
		slog.String("result", event.Result),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Permission != "" {
		attrs = append(attrs, slog.String("permission", event.Permission))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "access_event", attrs...)
}

// Authentication events
func (a *AccessLogger) LoginSuccess(ctx context.Context, userID, ipAddr string) {
	a.Log(ctx, AccessEvent{
		EventType: "authentication",
		UserID:    userID,
		IPAddress: ipAddr,
		Action:    "login",
		Result:    "success",
	})
}

func (a *AccessLogger) LoginFailure(ctx context.Context, email, ipAddr, reason string) {
	a.Log(ctx, AccessEvent{
		EventType: "authentication",
		IPAddress: ipAddr,
		Action:    "login",
		Result:    "failure",
		Reason:    reason,
		Metadata:  map[string]any{"email": email},
	})
}

func (a *AccessLogger) Logout(ctx context.Context, userID, ipAddr string) {
	a.Log(ctx, AccessEvent{
		EventType: "authentication",
		UserID:    userID,
		IPAddress: ipAddr,
		Action:    "logout",
		Result:    "success",
	})
}

// Access control events
func (a *AccessLogger) AccessGranted(ctx context.Context, userID, permission, ipAddr string) {
	a.Log(ctx, AccessEvent{
		EventType:  "access_control",
		UserID:     userID,
		IPAddress:  ipAddr,
		Action:     "access",
		Permission: permission,
		Result:     "success",
	})
}

func (a *AccessLogger) AccessDenied(ctx context.Context, userID, permission, reason, ipAddr string) {
	a.Log(ctx, AccessEvent{
		EventType:  "access_control",
		UserID:     userID,
		IPAddress:  ipAddr,
		Action:     "access",
		Permission: permission,
		Result:     "denied",
		Reason:     reason,
	})
}
