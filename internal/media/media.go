package media

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Metadata describes a locally stored media file.
type Metadata struct {
	MimeType string
	Size     int64
	Title    string
}

// Resolver turns internal media references into something an external
// platform can fetch.
type Resolver interface {
	SignedURL(localRef string, ttl time.Duration) (string, error)
	Metadata(localRef string) (Metadata, error)
}

// SignedResolver serves files from Root under BaseURL with HMAC-signed,
// short-lived URLs.
type SignedResolver struct {
	BaseURL string
	Root    string
	Secret  []byte

	now func() time.Time
}

func NewSignedResolver(baseURL, root, secret string) *SignedResolver {
	return &SignedResolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Root:    root,
		Secret:  []byte(secret),
		now:     time.Now,
	}
}

// SignedURL produces BaseURL/<ref>?exp=<unix>&sig=<hmac>. The signature
// covers the path and expiry so neither can be swapped.
func (r *SignedResolver) SignedURL(localRef string, ttl time.Duration) (string, error) {
	ref := path.Clean("/" + localRef)
	if strings.HasPrefix(ref, "/..") {
		return "", fmt.Errorf("media ref escapes root: %s", localRef)
	}

	exp := r.now().Add(ttl).Unix()
	sig := r.sign(ref, exp)

	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", sig)
	return r.BaseURL + ref + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL. Used by the media
// handler that serves the files.
func (r *SignedResolver) Verify(ref string, exp int64, sig string) bool {
	if r.now().Unix() > exp {
		return false
	}
	expected := r.sign(path.Clean("/"+ref), exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (r *SignedResolver) sign(ref string, exp int64) string {
	mac := hmac.New(sha256.New, r.Secret)
	fmt.Fprintf(mac, "%s:%d", ref, exp)
	return hex.EncodeToString(mac.Sum(nil))
}

func (r *SignedResolver) Metadata(localRef string) (Metadata, error) {
	full := filepath.Join(r.Root, filepath.FromSlash(path.Clean("/"+localRef)))
	info, err := os.Stat(full)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		MimeType: mime.TypeByExtension(filepath.Ext(localRef)),
		Size:     info.Size(),
		Title:    strings.TrimSuffix(info.Name(), filepath.Ext(info.Name())),
	}, nil
}
