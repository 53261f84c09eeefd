// Package security provides the PendingPlan approval-token sealer and
// pre-dispatch task screening used by the skill-driven agent, spec §4.7.4
// and SPEC_FULL §12.
package security

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	bc "github.com/awgh/bencrypt"
	"github.com/awgh/bencrypt/ecc"
)

// sealedToken is the plaintext payload wrapped into a PlanProposal's
// SealedToken / a PlanApprovalResponse's SealedToken, binding an approval
// reply to the exact pending plan and a freshness window.
type sealedToken struct {
	PendingReferenceCode string    `json:"pendingReferenceCode"`
	ExpiresAt            time.Time `json:"expiresAt"`
}

// PlanTokenSealer seals and unseals the approval token carried on
// PlanProposal/PlanApprovalResponse, grounded on the teacher's
// `security.go` MintDCT/Attenuate pattern but narrowed to a single
// seal/unseal pair instead of a full attenuation chain, since AskMeFirst
// gating here has exactly one hop (proposal → response), not a
// delegation chain. Backed by bencrypt's asymmetric keypair, the crypto
// backbone the teacher's go.mod lists but never imports.
type PlanTokenSealer struct {
	kp bc.KeyPair
}

// NewPlanTokenSealer generates a fresh process-local keypair. The sealer is
// only ever asked to open tokens it minted itself within the same process
// lifetime, so no key exchange or persistence is required.
func NewPlanTokenSealer() (*PlanTokenSealer, error) {
	kp := new(ecc.KeyPair)
	if err := kp.GenerateKey(); err != nil {
		return nil, fmt.Errorf("security: generate plan token keypair: %w", err)
	}
	return &PlanTokenSealer{kp: kp}, nil
}

// Seal produces an opaque token binding pendingReferenceCode to an
// expiry, suitable for PlanProposal.SealedToken.
func (s *PlanTokenSealer) Seal(pendingReferenceCode string, expiresAt time.Time) (string, error) {
	payload, err := json.Marshal(sealedToken{PendingReferenceCode: pendingReferenceCode, ExpiresAt: expiresAt})
	if err != nil {
		return "", fmt.Errorf("security: marshal sealed token: %w", err)
	}
	ciphertext, err := s.kp.EncryptMessage(payload, s.kp.GetPubKey())
	if err != nil {
		return "", fmt.Errorf("security: seal plan token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Unseal recovers the pending reference code carried by token and reports
// whether it has expired. A malformed or forged token is an error.
func (s *PlanTokenSealer) Unseal(token string) (pendingReferenceCode string, expired bool, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", false, fmt.Errorf("security: malformed plan token: %w", err)
	}
	plaintext, err := s.kp.DecryptMessage(raw)
	if err != nil {
		return "", false, fmt.Errorf("security: unseal plan token: %w", err)
	}
	var t sealedToken
	if err := json.Unmarshal(plaintext, &t); err != nil {
		return "", false, fmt.Errorf("security: decode plan token payload: %w", err)
	}
	return t.PendingReferenceCode, time.Now().After(t.ExpiresAt), nil
}
