package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	roundsEndpoint     = "/rounds"
	checkpointEndpoint = "/checkpoint"
)

type StartReport struct {
	Round        uint64   `json:"round"`
	Seed         int64    `json:"seed"`
	Participants []string `json:"participants"`
	Delivered    []string `json:"delivered"`
	Skipped      []string `json:"skipped"`
}

type RoundStatus struct {
	Round        uint64   `json:"round"`
	State        string   `json:"state"`
	Participants []string `json:"participants"`
	Submissions  int      `json:"submissions"`
}

type Tensor struct {
	Name   string    `json:"name"`
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

type Checkpoint struct {
	Round     uint64    `json:"round"`
	Params    []float64 `json:"params"`
	Tensors   []Tensor  `json:"tensors"`
	Clients   []string  `json:"clients"`
	CreatedAt time.Time `json:"created_at"`
}

func (sdk *flSDK) StartRound() (StartReport, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/trigger"

	body, err := sdk.processRequest(request{method: http.MethodPost, url: url}, http.StatusOK)
	if err != nil {
		return StartReport{}, err
	}

	var r StartReport
	if err := json.Unmarshal(body, &r); err != nil {
		return StartReport{}, err
	}

	return r, nil
}

func (sdk *flSDK) AggregateRound() (Checkpoint, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/aggregate"

	body, err := sdk.processRequest(request{method: http.MethodPost, url: url}, http.StatusCreated)
	if err != nil {
		return Checkpoint{}, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(body, &cp); err != nil {
		return Checkpoint{}, err
	}

	return cp, nil
}

func (sdk *flSDK) RoundStatus() (RoundStatus, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/status"

	body, err := sdk.processRequest(request{method: http.MethodGet, url: url}, http.StatusOK)
	if err != nil {
		return RoundStatus{}, err
	}

	var s RoundStatus
	if err := json.Unmarshal(body, &s); err != nil {
		return RoundStatus{}, err
	}

	return s, nil
}

func (sdk *flSDK) SubmitUpdate(clientID string, round uint64, params []float64) error {
	data, err := json.Marshal(map[string][]float64{"params": params})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s%s/%d/submissions", sdk.coordinatorURL, roundsEndpoint, round)

	_, err = sdk.processRequest(request{
		method:   http.MethodPost,
		url:      url,
		clientID: clientID,
		data:     data,
	}, http.StatusAccepted)

	return err
}

func (sdk *flSDK) SubmitUpdateCBOR(clientID string, round uint64, data []byte) error {
	url := fmt.Sprintf("%s%s/%d/submissions/cbor", sdk.coordinatorURL, roundsEndpoint, round)

	_, err := sdk.processRequest(request{
		method:      http.MethodPost,
		url:         url,
		contentType: CTCBOR,
		clientID:    clientID,
		data:        data,
	}, http.StatusAccepted)

	return err
}

func (sdk *flSDK) checkpointURL(round *uint64) string {
	url := sdk.coordinatorURL + checkpointEndpoint
	if round != nil {
		url = fmt.Sprintf("%s/%d", url, *round)
	}

	return url
}

func (sdk *flSDK) GetCheckpoint(round *uint64) (Checkpoint, error) {
	body, err := sdk.processRequest(request{method: http.MethodGet, url: sdk.checkpointURL(round)}, http.StatusOK)
	if err != nil {
		return Checkpoint{}, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(body, &cp); err != nil {
		return Checkpoint{}, err
	}

	return cp, nil
}

func (sdk *flSDK) ExportCheckpoint(round *uint64, format string) ([]byte, error) {
	url := sdk.checkpointURL(round) + "?format=" + format

	return sdk.processRequest(request{method: http.MethodGet, url: url}, http.StatusOK)
}
