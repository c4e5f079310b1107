package client

import (
	"context"
	"errors"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/protocol"
)

func credentials(t protocol.RequestType, username, password string) protocol.Request {
	return protocol.Request{
		Type: t,
		Payload: map[string]string{
			protocol.FieldUsername: username,
			protocol.FieldPassword: password,
		},
	}
}

// Register creates an account on the relay.
func Register(ctx context.Context, c *Conn, username, password string) error {
	res, err := c.Do(ctx, credentials(protocol.TypeRegister, username, password))
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}

// Login authenticates and binds this connection to the identity.
func Login(ctx context.Context, c *Conn, username, password string) (domain.Identity, error) {
	res, err := c.Do(ctx, credentials(protocol.TypeLogin, username, password))
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", errors.New(res.Message)
	}
	return domain.Identity(username), nil
}

// ConnectedUsers lists identities currently online.
func ConnectedUsers(ctx context.Context, c *Conn) ([]string, error) {
	res, err := c.Do(ctx, protocol.Request{Type: protocol.TypeGetConnectedUsers})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.New(res.Message)
	}
	raw, ok := res.Data.([]any)
	if !ok {
		return nil, nil
	}
	users := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			users = append(users, s)
		}
	}
	return users, nil
}
