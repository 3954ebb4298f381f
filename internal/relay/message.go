package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedPayload marks an inbound frame that is not valid JSON or is
// missing a required field. Fatal to the sending connection only.
var ErrMalformedPayload = errors.New("malformed payload")

// Message is one chat message as stored in history and fanned out to the
// room. Both fields are sender-supplied; content is not validated.
type Message struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// wirePayload is the inbound frame. Pointer fields so that "field absent"
// and "field empty" stay distinguishable: an empty string is a valid value,
// only a missing key fails required.
type wirePayload struct {
	Username *string `json:"username" validate:"required"`
	Message  *string `json:"message"  validate:"required"`
}

var validate = validator.New()

// DecodeMessage parses an inbound frame and checks both required fields are
// present. No other fields are consumed.
func DecodeMessage(data []byte) (Message, error) {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := validate.Struct(&w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return Message{Username: *w.Username, Message: *w.Message}, nil
}

// Encode re-emits the message verbatim: exactly the two fields, no
// timestamps or sequence numbers added.
func (m Message) Encode() []byte {
	data, _ := json.Marshal(m) // two plain strings, cannot fail
	return data
}
