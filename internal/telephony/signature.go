// Package telephony authenticates requests from the voice provider: webhook
// signatures and the short-lived tokens carried by media stream URLs.
package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/twilio/twilio-go/client"
)

// SignatureHeader carries the provider's request signature.
const SignatureHeader = "X-Twilio-Signature"

var (
	ErrMissingSecret    = errors.New("webhook secret not configured")
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Sign computes the provider signature: HMAC-SHA1 over the full request URL
// followed by each POST parameter name and value in key order, base64 encoded.
// It produces what the provider sends, for callers that simulate it.
func Sign(secret, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(secret))
	_, _ = mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verifier checks webhook signatures.
type Verifier struct {
	secret     string
	validator  client.RequestValidator
	publicBase string
	trustProxy bool
}

// NewVerifier creates a Verifier. When publicBaseURL is set it replaces the
// scheme and host of incoming requests, so signatures computed against the
// public address still match behind a proxy.
func NewVerifier(secret, publicBaseURL string, trustProxy bool) *Verifier {
	return &Verifier{
		secret:     secret,
		validator:  client.NewRequestValidator(secret),
		publicBase: strings.TrimRight(publicBaseURL, "/"),
		trustProxy: trustProxy,
	}
}

// RequestURL reconstructs the URL the provider signed.
func (v *Verifier) RequestURL(r *http.Request) string {
	if v.publicBase != "" {
		return v.publicBase + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if v.trustProxy {
		if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = p
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// Verify parses the form body and checks its signature. On success it
// returns the POST parameters; on failure nothing should be acted on.
func (v *Verifier) Verify(r *http.Request) (url.Values, error) {
	if v.secret == "" {
		return nil, ErrMissingSecret
	}
	sig := r.Header.Get(SignatureHeader)
	if sig == "" {
		return nil, ErrMissingSignature
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !v.validator.Validate(v.RequestURL(r), flatten(r.PostForm), sig) {
		return nil, ErrInvalidSignature
	}
	return r.PostForm, nil
}

// flatten keeps the first value of each parameter. Provider webhooks never
// repeat a parameter name.
func flatten(form url.Values) map[string]string {
	params := make(map[string]string, len(form))
	for k, vs := range form {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}
