package server

import (
	"bytes"
	"errors"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/xid"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"campusmarket/internal/storage/zapadapter"
)

const maxBodySize = 1 << 20

// enforcePOSTJSON is a middleware pre-processing each HTTP request
// it checks for POST method, application/json Content-Type header and valid json body
// it also sets blank Content-Type header to application/json
func enforcePOSTJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		// check "Content-Type" header
		contentType := r.Header.Get("Content-Type")
		if contentType != "" {
			mt, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				http.Error(w, "Malformed Content-Type header", http.StatusBadRequest)
				return
			}

			if mt != "application/json" {
				http.Error(w, "Content-Type header must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		} else {
			r.Header.Set("Content-Type", "application/json")
		}

		// check if provided request body is valid JSON
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Can not read request body", http.StatusBadRequest)
			return
		}

		if len(body) == 0 {
			http.Error(w, "No body provided", http.StatusBadRequest)
			return
		}

		err = fastjson.ValidateBytes(body)
		if err != nil {
			http.Error(w, "Malformed JSON", http.StatusBadRequest)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))

		next.ServeHTTP(w, r)
	})
}

func log(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()

		ctx := zapadapter.NewContextWithID(r.Context(), id)
		rwID := r.WithContext(ctx)

		logger.Info("incoming http request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("ip", r.RemoteAddr),
		)

		next.ServeHTTP(w, rwID)
	})
}

// rateLimit rejects requests of a client whose token bucket is empty with 429
func rateLimit(next http.Handler, l *limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := l.allow(clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the client by remote host, dropping the port
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
