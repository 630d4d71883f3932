// middleware — HTTP-мидлвари публичного API: request-id, логирование,
// восстановление после паник, таймаут запроса и аутентификация по Bearer.
package middleware

import "net/http"

// Middleware — классическая обёртка над http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain применяет мидлвари к handler в порядке перечисления:
// первая в списке оказывается самой внешней.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}

// statusWriter перехватывает статус и объём ответа для логирования.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.count += n

	return n, err
}
