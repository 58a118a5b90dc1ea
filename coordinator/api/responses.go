package api

import (
	"net/http"

	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/round"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*listClientsResponse)(nil)
	_ supermq.Response = (*startRoundResponse)(nil)
	_ supermq.Response = (*checkpointResponse)(nil)
	_ supermq.Response = (*roundStatusResponse)(nil)
	_ supermq.Response = (*submissionResponse)(nil)
)

type listClientsResponse struct {
	Clients []string `json:"clients"`
	Total   int      `json:"total"`
}

func (l listClientsResponse) Code() int {
	return http.StatusOK
}

func (l listClientsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listClientsResponse) Empty() bool {
	return false
}

const statusSuccess = "success"

type startRoundResponse struct {
	Status string `json:"status"`
	round.StartReport
}

func (s startRoundResponse) Code() int {
	return http.StatusOK
}

func (s startRoundResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s startRoundResponse) Empty() bool {
	return false
}

type checkpointResponse struct {
	Status string `json:"status,omitempty"`
	fl.Checkpoint
	created bool
}

func (c checkpointResponse) Code() int {
	if c.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (c checkpointResponse) Headers() map[string]string {
	return map[string]string{}
}

func (c checkpointResponse) Empty() bool {
	return false
}

type roundStatusResponse struct {
	round.Status
}

func (r roundStatusResponse) Code() int {
	return http.StatusOK
}

func (r roundStatusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r roundStatusResponse) Empty() bool {
	return false
}

type submissionResponse struct {
	Status   string `json:"status"`
	Round    uint64 `json:"round"`
	ClientID string `json:"client_id"`
}

func (s submissionResponse) Code() int {
	return http.StatusAccepted
}

func (s submissionResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s submissionResponse) Empty() bool {
	return false
}

// rawResponse carries an already encoded checkpoint.
type rawResponse struct {
	contentType string
	data        []byte
}
