package annotation

import (
	"log"
	"net/http"
	"time"
)

// i18nMiddleware adds the localizer matching Accept-Language to the request context
func (a *AnnotatorApp) i18nMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		localizer := a.Translations.LocalizerFromRequest(r)
		ctx := WithLocalizer(r.Context(), localizer)
		handler.ServeHTTP(w, r.WithContext(ctx))
	})
}

func HTTPLogger(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initialTime := time.Now()
		method := r.Method
		path := r.URL.String()
		wr := NewStatusCodeRecorderResponseWriter(w)
		handler.ServeHTTP(wr, r)
		finalTime := time.Now()
		log.Printf("http: time:%dms %d %s %s", finalTime.Sub(initialTime)/time.Millisecond, wr.Status, method, path)
	})
}

type StatusCodeRecorderResponseWriter struct {
	http.ResponseWriter
	Status int
}

func (r *StatusCodeRecorderResponseWriter) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func NewStatusCodeRecorderResponseWriter(w http.ResponseWriter) *StatusCodeRecorderResponseWriter {
	return &StatusCodeRecorderResponseWriter{ResponseWriter: w, Status: 200}
}
