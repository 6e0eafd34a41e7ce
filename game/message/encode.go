package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// ErrNotObject is returned when an envelope does not encode to a JSON object.
var ErrNotObject = errors.New("envelope does not encode to a JSON object")

// Encode renders env for the given recipient. The recipient id is written
// into the "id" member, replacing any id already present.
func Encode(env Envelope, recipient string) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("failed to encode: %w", ErrNotObject)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", env.Key(), err)
	}

	if _, dataType, _, err := jsonparser.Get(body); err != nil || dataType != jsonparser.Object {
		return nil, fmt.Errorf("failed to encode %s: %w", env.Key(), ErrNotObject)
	}

	stamped, err := jsonparser.Set(body, []byte(strconv.Quote(recipient)), "id")
	if err != nil {
		return nil, fmt.Errorf("failed to stamp recipient: %w", err)
	}
	return stamped, nil
}
