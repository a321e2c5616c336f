package gcontacts

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	version   = "0.1"
	userAgent = "contacts " + version

	// FeedBase is where the contact feeds live.
	FeedBase = "https://www.google.com/m8/feeds/contacts"

	accountsBase = "https://www.google.com"

	// Source identifies this client to ClientLogin.
	defaultSource = "rosita7-contacts-" + version
)

// Auth performs the AuthSub/ClientLogin handshakes. The zero value talks to
// Google over verified TLS; InsecureSkipVerify turns certificate checks off
// for compatibility with captive test setups.
type Auth struct {
	// Base overrides the accounts endpoint base URL. Used by tests.
	Base string

	// Source is the ClientLogin application identifier.
	Source string

	InsecureSkipVerify bool

	HTTPClient *http.Client
}

func (a *Auth) base() string {
	if a.Base != "" {
		return a.Base
	}
	return accountsBase
}

func (a *Auth) source() string {
	if a.Source != "" {
		return a.Source
	}
	return defaultSource
}

func (a *Auth) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	if a.InsecureSkipVerify {
		return &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
	return http.DefaultClient
}

// AuthenticationURL builds the URL to send the user's browser to for the
// AuthSub grant. next is where the user lands afterwards; empty means none.
// opts override the defaults {scope: FeedBase, secure: false, session: false}
// by key; overriding with a zero Value drops the parameter.
func (a *Auth) AuthenticationURL(next string, opts Params) string {
	nextVal := Value{}
	if next != "" {
		nextVal = String(next)
	}
	merged := Params{
		{"next", nextVal},
		{"scope", String(FeedBase)},
		{"secure", Bool(false)},
		{"session", Bool(false)},
	}
	for i, d := range merged {
		for _, o := range opts {
			if o.Key == d.Key {
				merged[i].Value = o.Value
			}
		}
	}
	for _, o := range opts {
		known := false
		for _, d := range []string{"next", "scope", "secure", "session"} {
			if o.Key == d {
				known = true
			}
		}
		if !known {
			merged = append(merged, o)
		}
	}
	return a.base() + "/accounts/AuthSubRequest?" + merged.Encode()
}

// ExchangeSessionToken trades a one-time AuthSub token for a session token.
// A well-formed response without a Token line yields "", nil: the caller
// must treat an empty token as an authentication failure.
func (a *Auth) ExchangeSessionToken(ctx context.Context, oneTime string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", a.base()+"/accounts/AuthSubSessionToken", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", `AuthSub token="`+oneTime+`"`)
	req.Header.Set("User-Agent", userAgent)
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return "", errors.Wrap(err, "exchanging session token")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading session token response")
	}
	tok := lineValue(string(body), "Token")
	if tok == "" {
		log.Debugf("No Token line in AuthSubSessionToken response (%s)", resp.Status)
	}
	return tok, nil
}

// ClientLogin authenticates with an email and password and returns the Auth
// token. Same empty-on-absence contract as ExchangeSessionToken.
func (a *Auth) ClientLogin(ctx context.Context, email, password string) (string, error) {
	form := Params{
		{"accountType", String("GOOGLE")},
		{"service", String("cp")},
		{"source", String(a.source())},
		{"Email", String(email)},
		{"Passwd", String(password)},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.base()+"/accounts/ClientLogin", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return "", errors.Wrap(err, "client login")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading client login response")
	}
	return lineValue(string(body), "Auth"), nil
}

// lineValue scans newline-separated Key=Value lines and returns the value of
// the first line whose key matches exactly. Unknown lines (Expiration=…,
// SID=…) are skipped.
func lineValue(body, key string) string {
	for _, line := range strings.Split(body, "\n") {
		if k, v, ok := strings.Cut(line, "="); ok && k == key {
			return strings.TrimRight(v, "\r")
		}
	}
	return ""
}
