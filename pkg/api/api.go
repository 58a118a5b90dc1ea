package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/storage"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
)

const (
	ContentType     = "application/json"
	CBORContentType = "application/cbor"
)

type errorRes struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if ar, ok := response.(supermq.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)

	kind := err
	switch {
	case errors.Is(err, pkgerrors.ErrAuthentication):
		kind = pkgerrors.ErrAuthentication
		w.WriteHeader(http.StatusUnauthorized)
	case errors.Is(err, pkgerrors.ErrRoundInProgress):
		kind = pkgerrors.ErrRoundInProgress
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, pkgerrors.ErrNoParticipantsAvailable):
		kind = pkgerrors.ErrNoParticipantsAvailable
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, pkgerrors.ErrEmptySubmissionSet):
		kind = pkgerrors.ErrEmptySubmissionSet
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, pkgerrors.ErrInvalidState):
		kind = pkgerrors.ErrInvalidState
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, pkgerrors.ErrDimensionMismatch):
		kind = pkgerrors.ErrDimensionMismatch
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrStaleRound):
		kind = pkgerrors.ErrStaleRound
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrNotParticipant):
		kind = pkgerrors.ErrNotParticipant
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, apiutil.ErrUnsupportedContentType):
		kind = apiutil.ErrUnsupportedContentType
		w.WriteHeader(http.StatusUnsupportedMediaType)
	case errors.Is(err, apiutil.ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, storage.ErrInvalidID):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrNotConnected):
		kind = pkgerrors.ErrNotConnected
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, pkgerrors.ErrNotFound):
		kind = pkgerrors.ErrNotFound
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(errorRes{Status: "failed", Error: kind.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
