package gcontacts

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

const spaces = "\n\t\r "

// ConfigAuth holds the credentials the client needs between runs.
type ConfigAuth struct {
	Email string
	Token string
}

// Config is the on-disk config file.
type Config struct {
	Auth ConfigAuth
}

// ReadConfig loads the JSON config file.
func ReadConfig(fn string) (*Config, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", fn)
	}
	var conf Config
	if err := json.Unmarshal(b, &conf); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", fn)
	}
	return &conf, nil
}

func readLine(s string) (string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(s)
	id, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.Trim(id, spaces), nil
}

func readPassword(s string) (string, error) {
	fmt.Print(s)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func makeConfig(ctx context.Context, a *Auth) ([]byte, error) {
	method, err := readLine("Auth method, clientlogin or authsub [clientlogin]: ")
	if err != nil {
		return nil, err
	}

	conf := &Config{}
	switch method {
	case "", "clientlogin":
		email, err := readLine("Email: ")
		if err != nil {
			return nil, err
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return nil, err
		}
		token, err := a.ClientLogin(ctx, email, password)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, errors.New("login succeeded at the transport level but returned no Auth token; check credentials")
		}
		conf.Auth = ConfigAuth{Email: email, Token: token}
	case "authsub":
		fmt.Printf("Cut and paste this URL into your browser:\n  %s\n",
			a.AuthenticationURL("", Params{{"session", Bool(true)}}))
		oneTime, err := readLine("One-time token from the redirect: ")
		if err != nil {
			return nil, err
		}
		token, err := a.ExchangeSessionToken(ctx, oneTime)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, errors.New("no Token in exchange response; the one-time token may be spent")
		}
		conf.Auth = ConfigAuth{Token: token}
	default:
		return nil, errors.Errorf("unknown auth method %q", method)
	}
	return json.Marshal(conf)
}

// Configure runs the interactive first-time setup and writes the config file.
func Configure(ctx context.Context, a *Auth, fn string) error {
	b, err := makeConfig(ctx, a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path.Dir(fn), 0700); err != nil {
		return errors.Wrapf(err, "creating config directory %q", path.Dir(fn))
	}
	return os.WriteFile(fn, b, 0600)
}
