package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/flcoord/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSDK struct {
	sdk.SDK
	submitted []float64
	round     uint64
	clientID  string
	cbor      []byte
}

func (f *fakeSDK) ListClients() (sdk.ClientList, error) {
	return sdk.ClientList{Clients: []string{"a", "b"}, Total: 2}, nil
}

func (f *fakeSDK) SubmitUpdate(clientID string, round uint64, params []float64) error {
	f.clientID, f.round, f.submitted = clientID, round, params

	return nil
}

func (f *fakeSDK) SubmitUpdateCBOR(clientID string, round uint64, data []byte) error {
	f.clientID, f.round, f.cbor = clientID, round, data

	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestReadParams(t *testing.T) {
	cases := []struct {
		desc    string
		content string
		params  []float64
		err     error
	}{
		{desc: "bare array", content: `[1, 2.5]`, params: []float64{1, 2.5}},
		{desc: "wrapped array", content: `{"params":[3]}`, params: []float64{3}},
		{desc: "missing params", content: `{"weights":[3]}`, err: errInvalidParams},
		{desc: "not json", content: `1,2`, err: errInvalidParams},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			params, err := readParams(writeFile(t, tc.content))
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.params, params)
		})
	}
}

func TestSubmitCmd(t *testing.T) {
	fake := &fakeSDK{}
	SetSDK(fake)
	t.Cleanup(func() { useCBOR = false })

	cmd := NewRoundsCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"submit", "client-1", "4", writeFile(t, `[0.5, 1.5]`)})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "client-1", fake.clientID)
	assert.Equal(t, uint64(4), fake.round)
	assert.Equal(t, []float64{0.5, 1.5}, fake.submitted)
	assert.Contains(t, out.String(), "ok")

	cmd = NewRoundsCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"submit", "client-2", "5", writeFile(t, `[1]`), "--cbor"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "client-2", fake.clientID)
	assert.NotEmpty(t, fake.cbor)
}

func TestClientsListCmd(t *testing.T) {
	SetSDK(&fakeSDK{})

	cmd := NewClientsCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"list"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), `"total"`)
	assert.Contains(t, out.String(), `"a"`)
}
