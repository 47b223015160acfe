package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	validatePath = "/api/validate"
	loginPath    = "/api/login"

	defaultTimeout = 15 * time.Second
)

// Credential is a token issued by a dialogue server.
type Credential struct {
	Server string
	Token  string
}

type LoginCredentials struct {
	Username string
	Password string
}

// Gateway validates and refreshes credentials against the dialogue server's
// HTTP API. It never retries on its own.
type Gateway struct {
	client *http.Client
}

type GatewayOption func(*Gateway)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client: &http.Client{
			Timeout: defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operation string, request *http.Request) string {
					return "auth " + request.URL.Path
				}),
			),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate checks the stored credential with its server. A nil credential or
// one without a server fails with [FailureNoServerConfigured] without any
// network call.
func (g *Gateway) Validate(ctx context.Context, stored *Credential) (Credential, error) {
	if stored == nil || strings.TrimSpace(stored.Server) == "" {
		return Credential{}, &Failure{Kind: FailureNoServerConfigured, Reason: "no server configured"}
	}

	ctx, span := tracer.Start(ctx, "validate token")
	defer span.End()
	span.SetAttributes(attribute.String("auth.server", stored.Server))

	var response tokenResponse
	if err := g.post(ctx, stored.Server, validatePath, tokenRequest{Token: stored.Token}, &response); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Credential{}, err
	}

	token := response.Token
	if token == "" {
		token = stored.Token
	}
	return Credential{Server: stored.Server, Token: token}, nil
}

// Login exchanges entered credentials for a fresh token. Persisting the
// returned credential is up to the caller.
func (g *Gateway) Login(ctx context.Context, server string, credentials LoginCredentials) (Credential, error) {
	if strings.TrimSpace(server) == "" {
		return Credential{}, &Failure{Kind: FailureNoServerConfigured, Reason: "no server configured"}
	}

	ctx, span := tracer.Start(ctx, "login")
	defer span.End()
	span.SetAttributes(attribute.String("auth.server", server))

	var response tokenResponse
	if err := g.post(ctx, server, loginPath, loginRequest{
		Username: credentials.Username,
		Password: credentials.Password,
	}, &response); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Credential{}, err
	}

	if response.Token == "" {
		err := &Failure{Kind: FailureTransient, Reason: "login response carried no token"}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Credential{}, err
	}

	return Credential{Server: server, Token: response.Token}, nil
}

type tokenRequest struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (g *Gateway) post(ctx context.Context, server, path string, body any, out any) error {
	endpoint, err := endpointURL(server, path)
	if err != nil {
		return &Failure{Kind: FailureNoServerConfigured, Reason: "invalid server address", Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &Failure{Kind: FailureTransient, Reason: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Failure{Kind: FailureTransient, Reason: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &Failure{Kind: FailureTransient, Reason: "could not reach server", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Failure{Kind: FailureTransient, Reason: "failed to read response", Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusFailure(resp.StatusCode, data)
	}

	if len(bytes.TrimSpace(data)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.WarnContext(ctx, "auth response was not valid json", "path", path, "error", err)
		return &Failure{Kind: FailureTransient, Reason: "malformed response", Status: resp.StatusCode, Err: err}
	}
	return nil
}

func statusFailure(status int, body []byte) *Failure {
	reason := http.StatusText(status)
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			reason = parsed.Message
		} else if parsed.Error != "" {
			reason = parsed.Error
		}
	}

	kind := FailureTransient
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = FailureUnauthorized
	}

	return &Failure{
		Kind:   kind,
		Reason: reason,
		Status: status,
		Err:    fmt.Errorf("unexpected status %d", status),
	}
}

func endpointURL(server, path string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(server))
	if err != nil {
		return "", err
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("server address %q is not absolute", server)
	}
	switch base.Scheme {
	case "ws":
		base.Scheme = "http"
	case "wss":
		base.Scheme = "https"
	}

	return base.JoinPath(path).String(), nil
}
