package lambda

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/dmorgan81/pawtrait/internal/log"
)

// Adapter serves API Gateway HTTP API (payload v2) events with an http.Handler.
type Adapter struct {
	handler http.Handler
}

func NewAdapter(h http.Handler) *Adapter {
	return &Adapter{handler: h}
}

func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("lambda").With("request_id", event.RequestContext.RequestID)

	req, err := toRequest(ctx, event)
	if err != nil {
		log.Error("invalid event", "error", err)
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest}, nil
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return toResponse(rec.Result().StatusCode, rec.Header(), rec.Body.Bytes()), nil
}

func toRequest(ctx context.Context, event events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = decoded
	}

	target := event.RawPath
	if target == "" {
		target = "/"
	}
	if event.RawQueryString != "" {
		target += "?" + event.RawQueryString
	}

	req, err := http.NewRequestWithContext(ctx, event.RequestContext.HTTP.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP
	req.Host = event.RequestContext.DomainName
	return req, nil
}

func toResponse(status int, header http.Header, body []byte) events.APIGatewayV2HTTPResponse {
	resp := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    make(map[string]string, len(header)),
		Cookies:    header.Values("Set-Cookie"),
	}
	for k, v := range header {
		if k == "Set-Cookie" {
			continue
		}
		resp.Headers[k] = strings.Join(v, ",")
	}

	if utf8.Valid(body) {
		resp.Body = string(body)
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(body)
		resp.IsBase64Encoded = true
	}
	return resp
}
