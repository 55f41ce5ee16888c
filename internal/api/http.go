package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxRequestBody = 64 << 10

type httpHandler struct {
	logger  *slog.Logger
	service TimelineServer
}

// NewRouter exposes the Timeline service and the snapshot stream over HTTP. hub may be nil.
func NewRouter(logger *slog.Logger, service TimelineServer, hub *Hub) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &httpHandler{logger: logger, service: service}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "SERVING"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/timeline", h.getTimeline)
		if hub != nil {
			r.Get("/timeline/stream", hub.ServeWS)
		}
		r.Post("/views", h.openView)
		r.Route("/views/{viewID}", func(r chi.Router) {
			r.Get("/", h.getView)
			r.Delete("/", h.closeView)
			r.Put("/date", h.selectDate)
			r.Delete("/date", h.clearDate)
			r.Put("/anomaly", h.selectAnomaly)
			r.Delete("/anomaly", h.closeAnomaly)
		})
	})
	return r
}

func (h *httpHandler) getTimeline(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetTimeline(r.Context(), &GetTimelineRequest{})
	h.respond(w, r, resp, err)
}

func (h *httpHandler) openView(w http.ResponseWriter, r *http.Request) {
	var req OpenViewRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.OpenView(r.Context(), &req)
	if err == nil {
		writeJSON(w, http.StatusCreated, resp)
		return
	}
	h.respond(w, r, resp, err)
}

func (h *httpHandler) getView(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetView(r.Context(), &ViewRequest{ViewID: chi.URLParam(r, "viewID")})
	h.respond(w, r, resp, err)
}

func (h *httpHandler) closeView(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.CloseView(r.Context(), &ViewRequest{ViewID: chi.URLParam(r, "viewID")})
	h.respond(w, r, resp, err)
}

func (h *httpHandler) selectDate(w http.ResponseWriter, r *http.Request) {
	var req SelectDateRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.ViewID = chi.URLParam(r, "viewID")
	resp, err := h.service.SelectDate(r.Context(), &req)
	h.respond(w, r, resp, err)
}

func (h *httpHandler) clearDate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ClearDate(r.Context(), &ViewRequest{ViewID: chi.URLParam(r, "viewID")})
	h.respond(w, r, resp, err)
}

func (h *httpHandler) selectAnomaly(w http.ResponseWriter, r *http.Request) {
	var req SelectAnomalyRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.ViewID = chi.URLParam(r, "viewID")
	resp, err := h.service.SelectAnomaly(r.Context(), &req)
	h.respond(w, r, resp, err)
}

func (h *httpHandler) closeAnomaly(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.CloseAnomaly(r.Context(), &ViewRequest{ViewID: chi.URLParam(r, "viewID")})
	h.respond(w, r, resp, err)
}

// decode reads an optional JSON body into dst. An empty body leaves dst untouched.
func (h *httpHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error(), Code: codes.InvalidArgument.String()})
		return false
	}
	return true
}

func (h *httpHandler) respond(w http.ResponseWriter, r *http.Request, resp any, err error) {
	if err != nil {
		st := status.Convert(err)
		code := httpStatus(st.Code())
		if code >= http.StatusInternalServerError {
			h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		writeJSON(w, code, errorBody{Error: st.Message(), Code: st.Code().String()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// httpStatus maps a gRPC status code onto the closest HTTP status.
func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
