package e2etest

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/myrjola/aivisibility/internal/errors"
)

// insecureJar is a [http.CookieJar] that sends Secure cookies over plain HTTP so that tests can talk to
// a server on localhost.
type insecureJar struct {
	*cookiejar.Jar
}

func newInsecureJar() (insecureJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return insecureJar{}, errors.Wrap(err, "new cookie jar")
	}
	return insecureJar{Jar: jar}, nil
}

func (j insecureJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		c.Secure = false
	}
	j.Jar.SetCookies(u, cookies)
}

// cookie returns the cookie called name that would be sent to u.
func (j insecureJar) cookie(u *url.URL, name string) (*http.Cookie, bool) {
	for _, c := range j.Cookies(u) {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
