package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/utils"

	"github.com/tidwall/gjson"
)

const (
	DefaultContentType = "application/json"
	CallbackPath       = "/_callback"
)

// ErrRemoteDocument marks a fetched definition that lacks a usable response.
var ErrRemoteDocument = errors.New("remote definition has no responseBody")

// Options for the resolver.
type Options struct {
	// PublicBaseURL is how callers reach this server, e.g. http://mock.local:8081.
	PublicBaseURL string
	Fetch         FetchOptions
}

// Resolver turns a matched rule into a response.
type Resolver struct {
	opts    Options
	fetcher *RemoteFetcher
}

func NewResolver(opts Options, client *http.Client) *Resolver {
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Resolver{
		opts:    opts,
		fetcher: NewRemoteFetcher(client, opts.Fetch),
	}
}

// Resolve runs the rule's strategy and then holds the response for the
// rule's latency. Strategy failures come back as error responses; the
// returned error is only the context ending during the latency wait.
func (r *Resolver) Resolve(ctx context.Context, rule *model.MatchRule, req model.RequestInfo) (model.ResponseInfo, error) {
	resp := r.execute(ctx, rule, req)
	delay := time.Duration(rule.LatencyMs) * time.Millisecond
	if err := Wait(ctx, delay); err != nil {
		return nil, err
	}
	if br, ok := resp.(*model.BaseResponse); ok {
		br.WithDelay(delay)
	}
	return resp, nil
}

// Wait blocks the calling goroutine only, until d passes or ctx ends.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Resolver) execute(ctx context.Context, rule *model.MatchRule, req model.RequestInfo) (resp model.ResponseInfo) {
	log := utils.GetLogger()
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("response strategy %s for %s panicked: %v", rule.Strategy.Kind, rule.DefinitionID, p)
			resp = model.NewErrorResponse(http.StatusInternalServerError, fmt.Errorf("response generator panicked: %v", p))
		}
	}()

	var err error
	switch rule.Strategy.Kind {
	case model.StrategyNamedFunction:
		resp, err = r.named(ctx, rule, req)
	case model.StrategyRemote:
		resp, err = r.remote(ctx, rule, req)
	case model.StrategyInline:
		resp, err = r.inline(rule, req)
	default:
		resp, err = r.static(rule)
	}
	if err != nil {
		log.Errorf("response strategy %s for %s failed: %v", rule.Strategy.Kind, rule.DefinitionID, err)
		return model.NewErrorResponse(http.StatusInternalServerError, err)
	}
	return resp
}

func (r *Resolver) named(ctx context.Context, rule *model.MatchRule, req model.RequestInfo) (model.ResponseInfo, error) {
	gen, ok := model.LookupGenerator(rule.Strategy.FunctionName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownGenerator, rule.Strategy.FunctionName)
	}
	resp, err := gen.Generate(ctx, req, rule.Definition)
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", rule.Strategy.FunctionName, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("generator %s returned no response", rule.Strategy.FunctionName)
	}
	return resp, nil
}

func (r *Resolver) inline(rule *model.MatchRule, req model.RequestInfo) (model.ResponseInfo, error) {
	if rule.Strategy.Inline == nil {
		return nil, errors.New("inline response function is not compiled")
	}
	var buf bytes.Buffer
	if err := rule.Strategy.Inline.Execute(&buf, model.NewTemplateData(req, rule.Definition)); err != nil {
		return nil, fmt.Errorf("render inline response function: %w", err)
	}
	return model.NewResponse(http.StatusOK, withContentType(rule.Strategy.Headers), buf.Bytes()), nil
}

func (r *Resolver) static(rule *model.MatchRule) (model.ResponseInfo, error) {
	body, err := model.MarshalBody(rule.Strategy.Body)
	if err != nil {
		return nil, err
	}
	return model.NewResponse(http.StatusOK, withContentType(rule.Strategy.Headers), body), nil
}

// remote re-fetches the rule's definition so edits at the source apply
// without a table rebuild.
func (r *Resolver) remote(ctx context.Context, rule *model.MatchRule, req model.RequestInfo) (model.ResponseInfo, error) {
	raw, err := r.fetcher.Fetch(ctx, rule.Strategy.RemoteURL)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("remote definition %s is not valid JSON", rule.Strategy.RemoteURL)
	}
	doc := gjson.ParseBytes(raw)

	headers := make(map[string]string)
	doc.Get("responseHeaders").ForEach(func(k, v gjson.Result) bool {
		headers[k.String()] = v.String()
		return true
	})

	bodyResult := doc.Get("responseBody")
	if !bodyResult.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrRemoteDocument, rule.Strategy.RemoteURL)
	}

	var body []byte
	if bodyResult.IsObject() || bodyResult.IsArray() {
		body = []byte(bodyResult.Raw)
		if cf := rule.Strategy.Callback; cf != nil {
			body, err = r.rewriteRedirect(body, cf, rule.DefinitionID, req)
			if err != nil {
				return nil, err
			}
		}
	} else {
		body = []byte(bodyResult.String())
	}
	return model.NewResponse(http.StatusOK, withContentType(headers), body), nil
}

// rewriteRedirect points redirectField at this server's callback endpoint.
// Nothing changes unless both the field and a callback URL are present.
func (r *Resolver) rewriteRedirect(body []byte, cf *model.CallbackForwarder, mockID string, req model.RequestInfo) ([]byte, error) {
	if !gjson.GetBytes(body, cf.RedirectField).Exists() {
		return body, nil
	}
	callbackURL := ExtractCallbackURL(req, cf.CallbackURLSource)
	if callbackURL == "" {
		return body, nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode remote responseBody: %w", err)
	}
	if !setPath(doc, strings.Split(cf.RedirectField, "."), r.CallbackURL(callbackURL, cf.DelaySeconds, mockID)) {
		return body, nil
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode remote responseBody: %w", err)
	}
	return out, nil
}

// CallbackURL builds the redirect target served by the callback simulator.
func (r *Resolver) CallbackURL(callbackURL string, delaySeconds int, mockID string) string {
	q := url.Values{}
	q.Set("callbackUrl", callbackURL)
	q.Set("delaySeconds", strconv.Itoa(delaySeconds))
	q.Set("mockId", mockID)
	return r.opts.PublicBaseURL + CallbackPath + "?" + q.Encode()
}

// ExtractCallbackURL reads the caller's callback URL from the current
// request. source is "query:<name>", "header:<name>" or a gjson path into
// the body.
func ExtractCallbackURL(req model.RequestInfo, source string) string {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return ""
	case strings.HasPrefix(source, "query:"):
		return req.GetQuery().Get(strings.TrimPrefix(source, "query:"))
	case strings.HasPrefix(source, "header:"):
		return req.GetHeaders()[strings.ToLower(strings.TrimPrefix(source, "header:"))]
	default:
		return gjson.GetBytes(req.GetBody(), strings.TrimPrefix(source, "body:")).String()
	}
}

func setPath(doc any, keys []string, value string) bool {
	cur := doc
	for i, k := range keys {
		switch node := cur.(type) {
		case map[string]any:
			if i == len(keys)-1 {
				if _, ok := node[k]; !ok {
					return false
				}
				node[k] = value
				return true
			}
			cur = node[k]
		case []any:
			idx, err := strconv.Atoi(k)
			if err != nil || idx < 0 || idx >= len(node) {
				return false
			}
			if i == len(keys)-1 {
				node[idx] = value
				return true
			}
			cur = node[idx]
		default:
			return false
		}
	}
	return false
}

func withContentType(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	hasType := false
	for k, v := range headers {
		if strings.EqualFold(k, "content-type") {
			hasType = true
		}
		out[k] = v
	}
	if !hasType {
		out["content-type"] = DefaultContentType
	}
	return out
}
