package lendkit

import (
	"context"
)

// Context keys for lendkit values.
type contextKey string

const (
	contextKeyActorID   contextKey = "lendkit:actor_id"
	contextKeyIPAddress contextKey = "lendkit:ip_address"
	contextKeyUserAgent contextKey = "lendkit:user_agent"
	contextKeyRequestID contextKey = "lendkit:request_id"
	contextKeySessionID contextKey = "lendkit:session_id"
	contextKeySnapshot  contextKey = "lendkit:snapshot"
)

func stringValue(ctx context.Context, key contextKey) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithActorID adds the authenticated actor to the context.
// Library assignments record it as AssignedBy.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor ID from context.
// Falls back to the snapshot's user when no actor is set.
func GetActorID(ctx context.Context) string {
	if id := stringValue(ctx, contextKeyActorID); id != "" {
		return id
	}
	if s := GetSnapshot(ctx); s != nil {
		return s.UserID
	}
	return ""
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	return stringValue(ctx, contextKeyIPAddress)
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserAgent)
}

// WithRequestID adds a request ID to the context (for log correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

// WithSessionID adds the session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

// GetSessionID retrieves the session ID from context.
func GetSessionID(ctx context.Context) string {
	return stringValue(ctx, contextKeySessionID)
}

// WithSnapshot adds the session's role snapshot to the context.
// This is set by Guard.LoadSnapshot and read by the feature guards.
func WithSnapshot(ctx context.Context, snapshot RoleSnapshot) context.Context {
	return context.WithValue(ctx, contextKeySnapshot, &snapshot)
}

// GetSnapshot retrieves the role snapshot from context.
// Returns nil if not set.
func GetSnapshot(ctx context.Context) *RoleSnapshot {
	if s, ok := ctx.Value(contextKeySnapshot).(*RoleSnapshot); ok {
		return s
	}
	return nil
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	ActorID   string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:   GetActorID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
// Empty fields are left unset.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
