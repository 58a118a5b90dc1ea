package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/api"
	"github.com/absmach/flcoord/pkg/auth"
	"github.com/absmach/flcoord/pkg/checkpoint"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxBodySize = 1024 * 1024 * 64
	roundKey    = "round"
	formatKey   = "format"
)

func MakeHandler(svc coordinator.Service, identifier auth.Identifier, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/clients", otelhttp.NewHandler(kithttp.NewServer(
		listClientsEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "list-clients").ServeHTTP)

	mux.Route("/rounds", func(r chi.Router) {
		r.Post("/trigger", otelhttp.NewHandler(kithttp.NewServer(
			startRoundEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "start-round").ServeHTTP)
		r.Post("/aggregate", otelhttp.NewHandler(kithttp.NewServer(
			aggregateRoundEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "aggregate-round").ServeHTTP)
		r.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
			roundStatusEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "round-status").ServeHTTP)
		r.Route("/{round}/submissions", func(r chi.Router) {
			r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
				submitUpdateEndpoint(svc),
				decodeSubmissionReq(identifier),
				api.EncodeResponse,
				opts...,
			), "submit-update").ServeHTTP)
			r.Post("/cbor", otelhttp.NewHandler(kithttp.NewServer(
				submitUpdateCBOREndpoint(svc),
				decodeCBORSubmissionReq(identifier),
				api.EncodeResponse,
				opts...,
			), "submit-update-cbor").ServeHTTP)
		})
	})

	mux.Route("/checkpoint", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			getCheckpointEndpoint(svc),
			decodeCheckpointReq,
			encodeCheckpointResponse,
			opts...,
		), "get-checkpoint").ServeHTTP)
		r.Get("/{round}", otelhttp.NewHandler(kithttp.NewServer(
			getCheckpointEndpoint(svc),
			decodeCheckpointReq,
			encodeCheckpointResponse,
			opts...,
		), "get-round-checkpoint").ServeHTTP)
	})

	mux.Get("/ws", websocketHandler(svc, identifier, logger))

	mux.Get("/health", supermq.Health("flcoord", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func readRound(r *http.Request) (uint64, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, roundKey), 10, 64)
	if err != nil {
		return 0, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData, err)
	}

	return n, nil
}

func decodeSubmissionReq(identifier auth.Identifier) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
			return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
		}

		clientID, err := identifier.Identify(r)
		if err != nil {
			return nil, err
		}
		roundNum, err := readRound(r)
		if err != nil {
			return nil, err
		}

		req := submissionReq{
			clientID: clientID,
			round:    roundNum,
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}

		return req, nil
	}
}

func decodeCBORSubmissionReq(identifier auth.Identifier) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		if !strings.Contains(r.Header.Get("Content-Type"), api.CBORContentType) {
			return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
		}

		clientID, err := identifier.Identify(r)
		if err != nil {
			return nil, err
		}
		roundNum, err := readRound(r)
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}

		return cborSubmissionReq{
			clientID: clientID,
			round:    roundNum,
			data:     data,
		}, nil
	}
}

func decodeCheckpointReq(_ context.Context, r *http.Request) (any, error) {
	req := checkpointReq{format: checkpoint.FormatJSON}
	if f := r.URL.Query().Get(formatKey); f != "" {
		req.format = checkpoint.Format(strings.ToLower(f))
	}

	if chi.URLParam(r, roundKey) != "" {
		n, err := readRound(r)
		if err != nil {
			return nil, err
		}
		req.round = &n
	}

	return req, nil
}

func encodeCheckpointResponse(ctx context.Context, w http.ResponseWriter, response any) error {
	raw, ok := response.(rawResponse)
	if !ok {
		return api.EncodeResponse(ctx, w, response)
	}

	w.Header().Set("Content-Type", raw.contentType)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(raw.data)

	return err
}
