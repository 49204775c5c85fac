package rosbridge

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/goccy/go-json"
)

const (
	opSubscribe = "subscribe"
	opAdvertise = "advertise"
	opPublish   = "publish"
)

// Reasons reported when an inbound frame is dropped.
const (
	ReasonMalformedJSON = "malformed_json"
	ReasonTopicMismatch = "topic_mismatch"
	ReasonMissingMsg    = "missing_msg"
	ReasonMissingData   = "missing_data"
	ReasonNonInteger    = "non_integer_data"
)

type controlFrame struct {
	Op    string    `json:"op"`
	Topic string    `json:"topic"`
	Type  string    `json:"type,omitempty"`
	Msg   *int32Msg `json:"msg,omitempty"`
}

type int32Msg struct {
	Data int32 `json:"data"`
}

type deliveryFrame struct {
	Topic string          `json:"topic"`
	Msg   json.RawMessage `json:"msg"`
}

type deliveryMsg struct {
	Data json.RawMessage `json:"data"`
}

func subscribeFrame(topic, msgType string) ([]byte, error) {
	return json.Marshal(controlFrame{Op: opSubscribe, Topic: topic, Type: msgType})
}

func advertiseFrame(topic, msgType string) ([]byte, error) {
	return json.Marshal(controlFrame{Op: opAdvertise, Topic: topic, Type: msgType})
}

func publishFrame(topic string, value int32) ([]byte, error) {
	return json.Marshal(controlFrame{Op: opPublish, Topic: topic, Msg: &int32Msg{Data: value}})
}

var errDropped = errors.New("rosbridge: frame dropped")

// decodeDelivery extracts msg.data from a frame addressed to topic. On
// failure it returns the drop reason.
func decodeDelivery(frame []byte, topic string) (int32, string, error) {
	var env deliveryFrame
	if err := json.Unmarshal(frame, &env); err != nil {
		return 0, ReasonMalformedJSON, err
	}
	if env.Topic != topic {
		return 0, ReasonTopicMismatch, errDropped
	}
	if isAbsent(env.Msg) {
		return 0, ReasonMissingMsg, errDropped
	}

	body := bytes.TrimSpace(env.Msg)
	if body[0] == '"' {
		// some bridges deliver msg as a JSON-encoded string
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return 0, ReasonMissingMsg, err
		}
		body = []byte(inner)
	}

	var msg deliveryMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return 0, ReasonMissingMsg, err
	}
	if isAbsent(msg.Data) {
		return 0, ReasonMissingData, errDropped
	}

	v, err := strconv.ParseInt(string(bytes.TrimSpace(msg.Data)), 10, 32)
	if err != nil {
		return 0, ReasonNonInteger, err
	}
	return int32(v), "", nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
