package api

import (
	"github.com/absmach/flcoord/pkg/checkpoint"
	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type emptyReq struct{}

func (e *emptyReq) validate() error {
	return nil
}

type submissionReq struct {
	clientID string
	round    uint64
	Params   []float64 `json:"params"`
}

func (s *submissionReq) validate() error {
	if s.clientID == "" {
		return apiutil.ErrMissingID
	}
	if s.Params == nil {
		return pkgerrors.ErrInvalidData
	}

	return nil
}

type cborSubmissionReq struct {
	clientID string
	round    uint64
	data     []byte
}

func (s *cborSubmissionReq) validate() error {
	if s.clientID == "" {
		return apiutil.ErrMissingID
	}
	if len(s.data) == 0 {
		return pkgerrors.ErrInvalidData
	}

	return nil
}

type checkpointReq struct {
	round  *uint64
	format checkpoint.Format
}

func (c *checkpointReq) validate() error {
	switch c.format {
	case checkpoint.FormatJSON, checkpoint.FormatCBOR:
		return nil
	default:
		return pkgerrors.ErrInvalidData
	}
}
