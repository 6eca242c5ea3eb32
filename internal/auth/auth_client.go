package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/audit"
	"github.com/sabarim/starmf/internal/order"
	"github.com/sabarim/starmf/internal/protocol"
	"github.com/sabarim/starmf/internal/transport"
)

// AuthClient sends getPassword requests to the order-entry service.
type AuthClient struct {
	doer     transport.Doer
	encoder  *protocol.Encoder
	password string
	logger   *zap.Logger
}

// NewAuthClient creates a client that logs in as creds through doer.
func NewAuthClient(creds Credentials, endpoint string, doer transport.Doer, logger *zap.Logger) *AuthClient {
	return &AuthClient{
		doer:     doer,
		encoder:  protocol.NewEncoder(creds.Account(), endpoint),
		password: creds.Password,
		logger:   logger,
	}
}

// Login exchanges the account password and passKey for an encrypted
// session credential. Remote rejections are returned in the reply, not as
// errors.
func (ac *AuthClient) Login(ctx context.Context, passKey string) (protocol.AuthReply, error) {
	call, err := ac.encoder.Encode(order.Login{PassKey: passKey}, ac.password)
	if err != nil {
		return protocol.AuthReply{}, err
	}

	ac.logger.Debug("requesting session credential", zap.String("method", call.Method))
	// every attempt of this login shares one exchange id
	raw, err := ac.doer.Do(audit.WithExchangeID(ctx, audit.ExchangeID(ctx)), call)
	if err != nil {
		return protocol.AuthReply{}, err
	}

	text, err := protocol.ExtractResult(raw)
	if err != nil {
		return protocol.AuthReply{}, err
	}
	return protocol.DecodeAuth(text)
}
