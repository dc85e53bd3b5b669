package domsvg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/snapkit/domsvg/snapshot"
	"github.com/hazyhaar/snapkit/horosafe"
	"github.com/hazyhaar/snapkit/idgen"
	"github.com/hazyhaar/snapkit/kit"
)

// Endpoints are the transport-agnostic operations of a Service.
type Endpoints struct {
	Capture kit.Endpoint // CaptureRequest → *snapshot.Snapshot
	Render  kit.Endpoint // RenderRequest → *snapshot.Snapshot
}

// Endpoints returns the service operations wrapped with request IDs and
// logging.
func (s *Service) Endpoints() Endpoints {
	mw := func(name string) kit.Middleware {
		return kit.Chain(
			kit.WithRequestIDs(idgen.Prefixed("req_", idgen.Default)),
			kit.Logging(s.logger, name),
		)
	}
	return Endpoints{
		Capture: mw("capture")(func(ctx context.Context, req any) (any, error) {
			r, ok := req.(CaptureRequest)
			if !ok {
				return nil, fmt.Errorf("%w: unexpected %T", ErrInvalidRequest, req)
			}
			return s.Capture(ctx, r)
		}),
		Render: mw("render_html")(func(ctx context.Context, req any) (any, error) {
			r, ok := req.(RenderRequest)
			if !ok {
				return nil, fmt.Errorf("%w: unexpected %T", ErrInvalidRequest, req)
			}
			return s.RenderHTML(ctx, r)
		}),
	}
}

// Handler returns the HTTP surface:
//
//	POST /snapshot       CaptureRequest → image/svg+xml
//	POST /snapshot.json  CaptureRequest → snapshot JSON
//	POST /render         RenderRequest → snapshot JSON
//	GET  /healthz
func (s *Service) Handler() http.Handler {
	eps := s.Endpoints()
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.serve(w, r, eps.Capture, &CaptureRequest{})
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("ETag", `"`+snap.SVGHash+`"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(snap.SVG))
	})
	r.Post("/snapshot.json", func(w http.ResponseWriter, r *http.Request) {
		if snap, ok := s.serve(w, r, eps.Capture, &CaptureRequest{}); ok {
			writeJSON(w, http.StatusOK, snap)
		}
	})
	r.Post("/render", func(w http.ResponseWriter, r *http.Request) {
		if snap, ok := s.serve(w, r, eps.Render, &RenderRequest{}); ok {
			writeJSON(w, http.StatusOK, snap)
		}
	})
	return r
}

// serve decodes a bounded JSON body into req, runs ep and writes any
// error. It reports whether a snapshot is ready to be written.
func (s *Service) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) (*snapshot.Snapshot, bool) {
	body, err := horosafe.LimitedReadAll(r.Body, s.cfg.HTTP.MaxBody)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, horosafe.ErrTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, err)
		return nil, false
	}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return nil, false
	}

	ctx := kit.WithRemoteAddr(kit.WithTransport(r.Context(), "http"), r.RemoteAddr)
	if id := r.Header.Get("X-Request-ID"); id != "" {
		ctx = kit.WithRequestID(ctx, id)
	}

	var resp any
	switch v := req.(type) {
	case *CaptureRequest:
		resp, err = ep(ctx, *v)
	case *RenderRequest:
		resp, err = ep(ctx, *v)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return resp.(*snapshot.Snapshot), true
}

// statusFor maps capture errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrSSRF),
		errors.Is(err, ErrUnsafeScheme):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, ErrDecodeTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
