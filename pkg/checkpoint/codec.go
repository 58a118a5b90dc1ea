package checkpoint

import (
	"encoding/json"
	"fmt"

	pkgerrors "github.com/absmach/flcoord/pkg/errors"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"
)

func EncodeJSON(cp fl.Checkpoint) ([]byte, error) {
	return json.MarshalIndent(cp, "", "  ")
}

func DecodeJSON(data []byte) (fl.Checkpoint, error) {
	var cp fl.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return fl.Checkpoint{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return cp, nil
}

func EncodeCBOR(cp fl.Checkpoint) ([]byte, error) {
	return cbor.Marshal(cp)
}

func DecodeCBOR(data []byte) (fl.Checkpoint, error) {
	var cp fl.Checkpoint
	if err := cbor.Unmarshal(data, &cp); err != nil {
		return fl.Checkpoint{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return cp, nil
}

// EncodeCompressed is the snappy-compressed CBOR form shipped to object storage.
func EncodeCompressed(cp fl.Checkpoint) ([]byte, error) {
	data, err := EncodeCBOR(cp)
	if err != nil {
		return nil, err
	}

	return snappy.Encode(nil, data), nil
}

func DecodeCompressed(data []byte) (fl.Checkpoint, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return fl.Checkpoint{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return DecodeCBOR(raw)
}
