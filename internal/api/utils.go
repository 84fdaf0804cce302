package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"sales-routing-backend/internal/api/middleware"
	"sales-routing-backend/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the worker queue behind CORS, access logging and the
// optional auth middlewares. Errors returned by f become JSON error bodies.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		s.requestQueueManager.EnqueueJob(job)

		err := <-errc
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				if httpErr.ErrorLog != nil {
					s.logger.Warn("request failed",
						slog.String("path", r.URL.Path),
						slog.Int("status", httpErr.StatusCode),
						slog.String("error", httpErr.ErrorLog.Error()))
				}
				WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message})
			} else {
				s.logger.Error("request failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
			}
		}
	}

	middlewares := []middleware.Middleware{
		middleware.CORS(s.cors),
		middleware.Logging(s.logger),
	}

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		middleware.Chain(baseHandler, authMiddleware...)(w, r)
	}

	return middleware.Chain(finalHandler, middlewares...)
}
