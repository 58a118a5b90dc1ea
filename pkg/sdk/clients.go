package sdk

import (
	"encoding/json"
	"net/http"
)

const clientsEndpoint = "/clients"

type ClientList struct {
	Clients []string `json:"clients"`
	Total   int      `json:"total"`
}

func (sdk *flSDK) ListClients() (ClientList, error) {
	url := sdk.coordinatorURL + clientsEndpoint

	body, err := sdk.processRequest(request{method: http.MethodGet, url: url}, http.StatusOK)
	if err != nil {
		return ClientList{}, err
	}

	var cl ClientList
	if err := json.Unmarshal(body, &cl); err != nil {
		return ClientList{}, err
	}

	return cl, nil
}
