package gcontacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

func TestAuthenticationURL(t *testing.T) {
	a := &Auth{}
	u, err := url.Parse(a.AuthenticationURL("http://example.com/done", nil))
	if err != nil {
		t.Fatalf("parsing authentication URL: %v", err)
	}
	if got, want := u.Scheme, "https"; got != want {
		t.Errorf("scheme: got %q, want %q", got, want)
	}
	if got, want := u.Host, "www.google.com"; got != want {
		t.Errorf("host: got %q, want %q", got, want)
	}
	if got, want := u.Path, "/accounts/AuthSubRequest"; got != want {
		t.Errorf("path: got %q, want %q", got, want)
	}
	want := url.Values{
		"next":    {"http://example.com/done"},
		"scope":   {FeedBase},
		"secure":  {"0"},
		"session": {"0"},
	}
	if got := u.Query(); !reflect.DeepEqual(got, want) {
		t.Errorf("query: got %v, want %v", got, want)
	}
}

func TestAuthenticationURLOptions(t *testing.T) {
	a := &Auth{}
	u, err := url.Parse(a.AuthenticationURL("", Params{
		{"secure", Bool(true)},
		{"session", Bool(true)},
	}))
	if err != nil {
		t.Fatalf("parsing authentication URL: %v", err)
	}
	q := u.Query()
	if got, want := q.Get("secure"), "1"; got != want {
		t.Errorf("secure: got %q, want %q", got, want)
	}
	if got, want := q.Get("session"), "1"; got != want {
		t.Errorf("session: got %q, want %q", got, want)
	}
	// No target means no next parameter at all.
	if _, ok := q["next"]; ok {
		t.Errorf("next should be absent, got %q", q.Get("next"))
	}
}

func TestAuthenticationURLDropsOverridden(t *testing.T) {
	a := &Auth{}
	u, err := url.Parse(a.AuthenticationURL("http://example.com/done", Params{
		{"secure", Value{}},
	}))
	if err != nil {
		t.Fatalf("parsing authentication URL: %v", err)
	}
	q := u.Query()
	if _, ok := q["secure"]; ok {
		t.Errorf("secure should be absent, got %q", q.Get("secure"))
	}
	if got, want := q.Get("session"), "0"; got != want {
		t.Errorf("session: got %q, want %q", got, want)
	}
}

func TestExchangeSessionToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.URL.Path, "/accounts/AuthSubSessionToken"; got != want {
			t.Errorf("path: got %q, want %q", got, want)
		}
		if got, want := r.Header.Get("Authorization"), `AuthSub token="onetime"`; got != want {
			t.Errorf("authorization: got %q, want %q", got, want)
		}
		if _, err := w.Write([]byte("Token=G25aZ-v_8B\nExpiration=20061004T123456Z")); err != nil {
			t.Errorf("Failed to write token response: %v", err)
		}
	}))
	defer ts.Close()

	a := &Auth{Base: ts.URL}
	tok, err := a.ExchangeSessionToken(context.Background(), "onetime")
	if err != nil {
		t.Fatalf("ExchangeSessionToken: %v", err)
	}
	if got, want := tok, "G25aZ-v_8B"; got != want {
		t.Errorf("token: got %q, want %q", got, want)
	}
}

func TestExchangeSessionTokenMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("Expiration=20061004T123456Z")); err != nil {
			t.Errorf("Failed to write token response: %v", err)
		}
	}))
	defer ts.Close()

	a := &Auth{Base: ts.URL}
	tok, err := a.ExchangeSessionToken(context.Background(), "onetime")
	if err != nil {
		t.Fatalf("ExchangeSessionToken: %v", err)
	}
	if got, want := tok, ""; got != want {
		t.Errorf("token: got %q, want empty", got)
	}
}

func TestClientLogin(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.Method, "POST"; got != want {
			t.Errorf("method: got %q, want %q", got, want)
		}
		if got, want := r.URL.Path, "/accounts/ClientLogin"; got != want {
			t.Errorf("path: got %q, want %q", got, want)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		for key, want := range map[string]string{
			"accountType": "GOOGLE",
			"service":     "cp",
			"Email":       "user@example.com",
			"Passwd":      "hunter2",
		} {
			if got := r.FormValue(key); got != want {
				t.Errorf("form %s: got %q, want %q", key, got, want)
			}
		}
		if got := r.FormValue("source"); got == "" {
			t.Errorf("form source: got empty, want a client identifier")
		}
		if _, err := w.Write([]byte("SID=klw4pHhL_ry4jl6\nLSID=Ij6k-7Ypnc1sxm\nAuth=EuoqMSjN5uo-3B")); err != nil {
			t.Errorf("Failed to write login response: %v", err)
		}
	}))
	defer ts.Close()

	a := &Auth{Base: ts.URL}
	tok, err := a.ClientLogin(context.Background(), "user@example.com", "hunter2")
	if err != nil {
		t.Fatalf("ClientLogin: %v", err)
	}
	if got, want := tok, "EuoqMSjN5uo-3B"; got != want {
		t.Errorf("token: got %q, want %q", got, want)
	}
}

func TestLineValue(t *testing.T) {
	tests := []struct {
		body, key, want string
	}{
		{"Token=G25aZ-v_8B\nExpiration=20061004T123456Z", "Token", "G25aZ-v_8B"},
		{"SID=a\nLSID=b\nAuth=c", "Auth", "c"},
		{"NotToken=x\nToken=y", "Token", "y"},
		{"Token=a=b", "Token", "a=b"},
		{"Token=crlf\r\nOther=x", "Token", "crlf"},
		{"Expiration=20061004T123456Z", "Token", ""},
		{"", "Token", ""},
		{"Token", "Token", ""},
	}
	for _, test := range tests {
		if got, want := lineValue(test.body, test.key), test.want; got != want {
			t.Errorf("lineValue(%q, %q): got %q, want %q", test.body, test.key, got, want)
		}
	}
}
