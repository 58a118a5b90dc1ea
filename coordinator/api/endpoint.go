package api

import (
	"context"
	"errors"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/checkpoint"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func listClientsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return listClientsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		clients, err := svc.ListClients(ctx)
		if err != nil {
			return listClientsResponse{}, err
		}

		return listClientsResponse{
			Clients: clients,
			Total:   len(clients),
		}, nil
	}
}

func startRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return startRoundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		report, err := svc.StartRound(ctx)
		if err != nil {
			return startRoundResponse{}, err
		}

		return startRoundResponse{
			Status:      statusSuccess,
			StartReport: report,
		}, nil
	}
}

func aggregateRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return checkpointResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		cp, err := svc.CloseCollectionAndAggregate(ctx)
		if err != nil {
			return checkpointResponse{}, err
		}

		return checkpointResponse{
			Status:     statusSuccess,
			Checkpoint: cp,
			created:    true,
		}, nil
	}
}

func roundStatusEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return roundStatusResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		status, err := svc.RoundStatus(ctx)
		if err != nil {
			return roundStatusResponse{}, err
		}

		return roundStatusResponse{Status: status}, nil
	}
}

func submitUpdateEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(submissionReq)
		if !ok {
			return submissionResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return submissionResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitUpdate(ctx, fl.Submission{
			Round:    req.round,
			ClientID: req.clientID,
			Params:   req.Params,
		}); err != nil {
			return submissionResponse{}, err
		}

		return submissionResponse{
			Status:   "accepted",
			Round:    req.round,
			ClientID: req.clientID,
		}, nil
	}
}

func submitUpdateCBOREndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(cborSubmissionReq)
		if !ok {
			return submissionResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return submissionResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitUpdateCBOR(ctx, req.round, req.clientID, req.data); err != nil {
			return submissionResponse{}, err
		}

		return submissionResponse{
			Status:   "accepted",
			Round:    req.round,
			ClientID: req.clientID,
		}, nil
	}
}

func getCheckpointEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(checkpointReq)
		if !ok {
			return checkpointResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return checkpointResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if req.format == checkpoint.FormatCBOR {
			data, err := svc.ExportCheckpoint(ctx, req.round, req.format)
			if err != nil {
				return nil, err
			}

			return rawResponse{
				contentType: req.format.ContentType(),
				data:        data,
			}, nil
		}

		cp, err := svc.GetCheckpoint(ctx, req.round)
		if err != nil {
			return checkpointResponse{}, err
		}

		return checkpointResponse{Checkpoint: cp}, nil
	}
}
