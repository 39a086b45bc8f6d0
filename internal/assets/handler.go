package assets

import (
	"fmt"
	"net/http"
)

// NewFileHandler serves files under root. Directories resolve to index.html or
// the default listing; anything other than GET and HEAD is rejected with 501.
func NewFileHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, fmt.Sprintf("Unsupported method (%q)", r.Method), http.StatusNotImplemented)
			return
		}
		files.ServeHTTP(w, r)
	})
}
