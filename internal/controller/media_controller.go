package controller

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/plumapost/pluma-backend/internal/media"
)

// MediaController serves locally stored media behind the signed URLs the
// resolver hands to adapters.
type MediaController struct {
	Resolver *media.SignedResolver
}

func (c *MediaController) Serve(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "*")
	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		http.Error(w, "missing expiry", http.StatusBadRequest)
		return
	}
	sig := r.URL.Query().Get("sig")

	if !c.Resolver.Verify("/"+ref, exp, sig) {
		http.Error(w, "invalid or expired signature", http.StatusForbidden)
		return
	}

	http.ServeFile(w, r, filepath.Join(c.Resolver.Root, filepath.FromSlash(ref)))
}
