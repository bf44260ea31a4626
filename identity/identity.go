/*
The identity package resolves this installation's stable instance id. The id
is minted once, on first use, and persisted; every later session presents the
same id so the gateway can recognize a returning agent across reconnects and
restarts.
*/
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/vcentea/linkedin-gateway-sub000/logger"
	"github.com/vcentea/linkedin-gateway-sub000/store"
)

const (
	instanceIdKey = "instance_id"
	actingUserKey = "acting_user"
)

type IIdentityProvider interface {
	InstanceId(ctx context.Context) (string, error)
	CurrentUser() string
}

type IdentityProvider struct {
	logger *logger.Logger
	store  store.Store

	lock sync.Mutex

	// Cached after first resolution; the id never changes once minted
	instanceId string
}

func New(logger *logger.Logger, store store.Store) *IdentityProvider {
	return &IdentityProvider{
		logger: logger,
		store:  store,
	}
}

func (i *IdentityProvider) InstanceId(ctx context.Context) (string, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	if i.instanceId != "" {
		return i.instanceId, nil
	}

	instanceId, err := i.store.Get(instanceIdKey)
	if err == nil {
		i.instanceId = instanceId
		return instanceId, nil
	}

	var keyErr *store.KeyNotFoundError
	if !errors.As(err, &keyErr) {
		return "", err
	}

	// First run on this installation; mint an id and persist it before
	// handing it out so we never announce an id we could lose
	instanceId = uuid.New().String()
	if err := i.store.Set(instanceIdKey, instanceId); err != nil {
		return "", err
	}

	i.logger.Infof("Minted new instance id %s", instanceId)
	i.instanceId = instanceId
	return instanceId, nil
}

// CurrentUser reports the acting user last recorded in the store. It is
// informational; an empty string just means no user has been recorded yet.
func (i *IdentityProvider) CurrentUser() string {
	user, err := i.store.Get(actingUserKey)
	if err != nil {
		return ""
	}
	return user
}

// SetCurrentUser records the acting user reported by the browser session
func (i *IdentityProvider) SetCurrentUser(user string) error {
	return i.store.Set(actingUserKey, user)
}
