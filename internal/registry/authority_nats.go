package registry

import (
	"encoding/json"
	"fmt"
	"net/http"

	nc "github.com/dataparency-dev/natsclient"

	"github.com/cortexrt/runtime/internal/envelope"
)

// NatsAuthorityRegistry is an optional persistent AuthorityRegistry backed
// by the teacher's own transport library, natsclient, for deployments that
// want grants to outlive a process restart (spec §3.10 allows any registry
// other than in-memory to be swapped in behind the same interface; the
// in-memory AuthorityRegistry in authority.go remains the default per spec
// §6.5).
// It reuses the teacher's RDID-based relation model: a grant is stored as
// structured data under the "Authority" domain, keyed by agentId, and an
// RDID relation is registered for it the same way engine.go's storeData
// does for every other domain.
type NatsAuthorityRegistry struct {
	server string
	token  nc.APIToken
}

const authorityDomain = "Authority"

// NewNatsAuthorityRegistry connects and authenticates exactly as the
// teacher's delegation.NewEngine did.
func NewNatsAuthorityRegistry(natsURL, serverTopic, user, password string) (*NatsAuthorityRegistry, error) {
	conn := nc.ConnectAPI(natsURL, serverTopic)
	if conn == nil {
		return nil, fmt.Errorf("registry: connect to NATS at %s: %w", natsURL, errConnectFailed)
	}
	token := nc.LoginAPI(serverTopic, user, password)
	if token.Token == "" {
		return nil, fmt.Errorf("registry: authenticate user %s: %w", user, errAuthFailed)
	}
	return &NatsAuthorityRegistry{server: serverTopic, token: token}, nil
}

func (r *NatsAuthorityRegistry) rdid(entity string) (string, error) {
	rdid, status := nc.RelationRetrieve(r.server, entity, r.token)
	if status != http.StatusOK {
		rdid, status = nc.RelationRegister(r.server, entity, r.token, "write")
		if status != http.StatusOK {
			return "", fmt.Errorf("registry: establish RDID for %s (status %d)", entity, status)
		}
	}
	return rdid, nil
}

func (r *NatsAuthorityRegistry) Grant(agentId, action string, claim envelope.AuthorityClaim) error {
	rdid, err := r.rdid(agentId)
	if err != nil {
		return err
	}
	body, err := json.Marshal(claim)
	if err != nil {
		return err
	}
	dflags := make(map[string]interface{})
	nc.SetDomain(dflags, authorityDomain)
	nc.SetEntity(dflags, agentId)
	nc.SetRDID(dflags, rdid)
	nc.SetAspect(dflags, action)

	rsp := nc.Post(r.server, body, dflags, r.token)
	if rsp.Header.Status != http.StatusOK {
		return fmt.Errorf("registry: grant %s/%s failed: %s", agentId, action, rsp.Header.ErrorStr)
	}
	return nil
}

func (r *NatsAuthorityRegistry) GetClaim(agentId, action string) (envelope.AuthorityClaim, error) {
	rdid, err := r.rdid(agentId)
	if err != nil {
		return envelope.AuthorityClaim{}, err
	}
	dflags := make(map[string]interface{})
	nc.SetDomain(dflags, authorityDomain)
	nc.SetEntity(dflags, agentId)
	nc.SetRDID(dflags, rdid)
	nc.SetAspect(dflags, action)
	nc.SetTag(dflags, "data")
	nc.SetTimestamp(dflags, "latest")

	rsp := nc.Get(r.server, dflags, r.token)
	if rsp.Header.Status != http.StatusOK {
		return envelope.AuthorityClaim{}, fmt.Errorf("registry: get claim %s/%s failed: %s", agentId, action, rsp.Header.ErrorStr)
	}
	var claim envelope.AuthorityClaim
	if err := json.Unmarshal(rsp.Response, &claim); err != nil {
		return envelope.AuthorityClaim{}, fmt.Errorf("registry: unmarshal claim: %w", err)
	}
	return claim, nil
}

func (r *NatsAuthorityRegistry) Revoke(agentId string) error {
	_, status := nc.RelationRemove(r.server, agentId, r.token)
	if status != http.StatusOK {
		return fmt.Errorf("registry: revoke %s failed (status %d)", agentId, status)
	}
	return nil
}

var (
	errConnectFailed = fmt.Errorf("nats connection returned nil")
	errAuthFailed    = fmt.Errorf("empty session token")
)
