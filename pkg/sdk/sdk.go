package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	CTJSON string = "application/json"
	CTCBOR string = "application/cbor"

	clientIDHeader = "X-Client-ID"
)

type SDK interface {
	// ListClients lists clients holding a live connection.
	//
	// example:
	//  clients, _ := sdk.ListClients()
	//  fmt.Println(clients.Clients)
	ListClients() (ClientList, error)

	// StartRound selects participants and notifies them.
	//
	// example:
	//  report, _ := sdk.StartRound()
	//  fmt.Println(report.Participants)
	StartRound() (StartReport, error)

	// AggregateRound closes collection and writes the round checkpoint.
	//
	// example:
	//  cp, _ := sdk.AggregateRound()
	//  fmt.Println(cp.Round)
	AggregateRound() (Checkpoint, error)

	// RoundStatus returns the current round and controller state.
	RoundStatus() (RoundStatus, error)

	// SubmitUpdate uploads the parameters of clientID for round.
	//
	// example:
	//  _ = sdk.SubmitUpdate("client-1", 0, []float64{0.1, 0.2})
	SubmitUpdate(clientID string, round uint64, params []float64) error

	// SubmitUpdateCBOR uploads a CBOR encoded {"params": [...]} body.
	SubmitUpdateCBOR(clientID string, round uint64, data []byte) error

	// GetCheckpoint returns the checkpoint of round, or the latest one when round is nil.
	GetCheckpoint(round *uint64) (Checkpoint, error)

	// ExportCheckpoint returns the raw checkpoint artifact in format ("json" or "cbor").
	ExportCheckpoint(round *uint64, format string) ([]byte, error)
}

type flSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &flSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

type request struct {
	method      string
	url         string
	contentType string
	clientID    string
	data        []byte
}

type errorRes struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (sdk *flSDK) processRequest(r request, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(r.method, r.url, bytes.NewReader(r.data))
	if err != nil {
		return []byte{}, err
	}

	contentType := r.contentType
	if contentType == "" {
		contentType = CTJSON
	}
	req.Header.Add("Content-Type", contentType)
	if r.clientID != "" {
		req.Header.Add(clientIDHeader, r.clientID)
	}

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e errorRes
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			return []byte{}, fmt.Errorf("unexpected response code %d: %s", resp.StatusCode, e.Error)
		}

		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
