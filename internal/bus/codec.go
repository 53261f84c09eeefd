package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cortexrt/runtime/internal/envelope"
)

// wireEnvelope is the JSON body shape of spec §6.1: "{message, referenceCode,
// authorityClaims[], context, priority, sla}; enums use camelCase strings;
// nulls omitted." Message is carried as a raw payload; its concrete type is
// reconstructed from the sibling cortex-message-type header, not from
// anything inside the body itself.
type wireEnvelope struct {
	Message         json.RawMessage           `json:"message"`
	ReferenceCode   string                    `json:"referenceCode"`
	AuthorityClaims []envelope.AuthorityClaim `json:"authorityClaims,omitempty"`
	Context         envelope.Context          `json:"context"`
	Priority        envelope.Priority         `json:"priority"`
	SlaSeconds      *float64                  `json:"sla,omitempty"`
}

// messageFactories maps a cortex-message-type header value to a zero-value
// constructor, so Decode can reconstruct the concrete Go type before
// unmarshalling the raw payload into it.
var messageFactories = map[string]func() envelope.Message{
	envelope.TypeRequest:          func() envelope.Message { return &envelope.Request{} },
	envelope.TypeReply:            func() envelope.Message { return &envelope.Reply{} },
	envelope.TypePlanProposal:     func() envelope.Message { return &envelope.PlanProposal{} },
	envelope.TypePlanApprovalResp: func() envelope.Message { return &envelope.PlanApprovalResponse{} },
	envelope.TypeSupervisionAlert: func() envelope.Message { return &envelope.SupervisionAlert{} },
	envelope.TypeEscalationAlert:  func() envelope.Message { return &envelope.EscalationAlert{} },
}

// Encode serializes env into its wire body and returns the
// cortex-message-type header value to carry alongside it, spec §6.1.
func Encode(env envelope.Envelope) (body []byte, msgType string, err error) {
	if env.Message == nil {
		return nil, "", fmt.Errorf("bus: envelope has no message")
	}
	msgType = env.Message.Type()
	payload, err := json.Marshal(env.Message)
	if err != nil {
		return nil, "", fmt.Errorf("bus: marshal message: %w", err)
	}
	var sla *float64
	if env.Sla != nil {
		s := env.Sla.Seconds()
		sla = &s
	}
	wire := wireEnvelope{
		Message:         payload,
		ReferenceCode:   env.ReferenceCode,
		AuthorityClaims: env.AuthorityClaims,
		Context:         env.Context,
		Priority:        env.Priority,
		SlaSeconds:      sla,
	}
	body, err = json.Marshal(wire)
	if err != nil {
		return nil, "", fmt.Errorf("bus: marshal envelope: %w", err)
	}
	return body, msgType, nil
}

// Decode reconstructs an Envelope from its wire body and message-type
// header. A missing or unknown type header is a permanent deserialisation
// failure per spec §4.2.
func Decode(body []byte, msgType string) (envelope.Envelope, error) {
	if msgType == "" {
		return envelope.Envelope{}, ErrUnknownMessageType
	}
	factory, ok := messageFactories[msgType]
	if !ok {
		return envelope.Envelope{}, fmt.Errorf("%w: %s", ErrUnknownMessageType, msgType)
	}

	var wire wireEnvelope
	if err := json.Unmarshal(body, &wire); err != nil {
		return envelope.Envelope{}, fmt.Errorf("bus: malformed envelope body: %w", err)
	}

	msg := factory()
	if len(wire.Message) > 0 {
		if err := json.Unmarshal(wire.Message, msg); err != nil {
			return envelope.Envelope{}, fmt.Errorf("bus: malformed message payload: %w", err)
		}
	}

	out := envelope.Envelope{
		Message:         msg,
		ReferenceCode:   wire.ReferenceCode,
		AuthorityClaims: wire.AuthorityClaims,
		Context:         wire.Context,
		Priority:        wire.Priority,
	}
	if wire.SlaSeconds != nil {
		d := secondsToDuration(*wire.SlaSeconds)
		out.Sla = &d
	}
	return out, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
