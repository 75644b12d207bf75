package waitlist

import (
	"errors"
	"net/url"
	"strings"
)

var ErrRedirectNotAllowed = errors.New("redirect target not allowed")

// RedirectPolicy accepts same-site relative paths and absolute http(s) URLs on
// an allow-listed host.
type RedirectPolicy struct {
	allowedHosts map[string]struct{}
}

func NewRedirectPolicy(hosts []string) *RedirectPolicy {
	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allowed[h] = struct{}{}
		}
	}
	return &RedirectPolicy{allowedHosts: allowed}
}

// Resolve validates raw and appends submitted and email to its query string.
func (p *RedirectPolicy) Resolve(raw, email string, submitted bool) (string, error) {
	target, err := p.validate(raw)
	if err != nil {
		return "", err
	}

	query := target.Query()
	if submitted {
		query.Set("submitted", "true")
	} else {
		query.Set("submitted", "false")
	}
	if email != "" {
		query.Set("email", email)
	}
	target.RawQuery = query.Encode()

	return target.String(), nil
}

func (p *RedirectPolicy) validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, "\\\r\n\t") {
		return nil, ErrRedirectNotAllowed
	}

	target, err := url.Parse(raw)
	if err != nil {
		return nil, ErrRedirectNotAllowed
	}

	if target.Scheme == "" && target.Host == "" {
		if !strings.HasPrefix(target.Path, "/") || strings.HasPrefix(raw, "//") {
			return nil, ErrRedirectNotAllowed
		}
		return target, nil
	}

	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, ErrRedirectNotAllowed
	}
	if target.User != nil {
		return nil, ErrRedirectNotAllowed
	}
	if _, ok := p.allowedHosts[strings.ToLower(target.Hostname())]; !ok {
		return nil, ErrRedirectNotAllowed
	}

	return target, nil
}
