// Package client is the entry point for the owning application: one method
// per order operation, each returning a successful Result or a single typed
// error from package errs.
package client

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/audit"
	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
	"github.com/sabarim/starmf/internal/protocol"
	"github.com/sabarim/starmf/internal/transport"
	"github.com/sabarim/starmf/internal/validate"
)

// Authenticator supplies session credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, passKey string) error
	GetCredential(ctx context.Context) (string, error)
	IsValid() bool
	Logout()
}

// Checker is an additional pre-flight rule, such as the scheme master.
type Checker interface {
	Check(req order.Request) error
}

// Client is safe for concurrent use. Requests share nothing but the
// authenticator's session.
type Client struct {
	auth      Authenticator
	doer      transport.Doer
	encoder   *protocol.Encoder
	validator *validate.Validator
	checkers  []Checker
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithLimits(limits validate.Limits) Option {
	return func(c *Client) { c.validator = validate.New(limits) }
}

func WithChecker(checker Checker) Option {
	return func(c *Client) { c.checkers = append(c.checkers, checker) }
}

func WithEncoder(encoder *protocol.Encoder) Option {
	return func(c *Client) { c.encoder = encoder }
}

// New creates a client for account talking to endpoint through doer.
func New(account order.Account, endpoint string, auth Authenticator, doer transport.Doer, opts ...Option) *Client {
	c := &Client{
		auth:      auth,
		doer:      doer,
		encoder:   protocol.NewEncoder(account, endpoint),
		validator: validate.New(validate.DefaultLimits()),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("client")
	return c
}

func (c *Client) Authenticate(ctx context.Context, passKey string) error {
	if err := c.auth.Authenticate(ctx, passKey); err != nil {
		return c.fail(order.Login{}, err)
	}
	return nil
}

func (c *Client) GetCredential(ctx context.Context) (string, error) {
	credential, err := c.auth.GetCredential(ctx)
	if err != nil {
		return "", c.fail(order.Login{}, err)
	}
	return credential, nil
}

func (c *Client) IsValid() bool { return c.auth.IsValid() }

func (c *Client) Logout() { c.auth.Logout() }

func (c *Client) PlaceLumpsum(ctx context.Context, req order.Lumpsum) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) PlaceSIP(ctx context.Context, req order.SIP) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) ModifySIP(ctx context.Context, req order.SIPModify) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) CancelSIP(ctx context.Context, req order.SIPCancel) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) PlaceXSIP(ctx context.Context, req order.XSIP) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) ModifyXSIP(ctx context.Context, req order.XSIPModify) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) CancelXSIP(ctx context.Context, req order.XSIPCancel) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) PlaceSwitch(ctx context.Context, req order.Switch) (order.Result, error) {
	return c.place(ctx, req)
}

func (c *Client) PlaceSpread(ctx context.Context, req order.Spread) (order.Result, error) {
	return c.place(ctx, req)
}

// Cancel withdraws orderID placed for clientCode.
func (c *Client) Cancel(ctx context.Context, orderID, clientCode string) (order.Result, error) {
	return c.place(ctx, order.Cancel{OrderID: orderID, ClientCode: clientCode})
}

// QueryStatus lists orders matching q. Rows are in Extra[order.ExtraPayload].
func (c *Client) QueryStatus(ctx context.Context, q order.StatusQuery) (order.Result, error) {
	return c.place(ctx, q)
}

// OrderStatus fetches the detail record of one order into Result.Record.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (order.Result, error) {
	return c.place(ctx, order.OrderStatus{OrderID: orderID})
}

func (c *Client) AllotmentStatement(ctx context.Context, s order.Statement) (order.Result, error) {
	s.Redemption = false
	return c.place(ctx, s)
}

func (c *Client) RedemptionStatement(ctx context.Context, s order.Statement) (order.Result, error) {
	s.Redemption = true
	return c.place(ctx, s)
}

// place validates before touching the session so that malformed requests
// never cause a login.
func (c *Client) place(ctx context.Context, req order.Request) (order.Result, error) {
	if err := c.check(req); err != nil {
		return order.Result{}, err
	}
	credential, err := c.auth.GetCredential(ctx)
	if err != nil {
		return order.Result{}, c.fail(req, err)
	}
	return c.submit(ctx, req, credential)
}

// Submit sends req with an explicit session credential.
func (c *Client) Submit(ctx context.Context, req order.Request, credential string) (order.Result, error) {
	if err := c.check(req); err != nil {
		return order.Result{}, err
	}
	return c.submit(ctx, req, credential)
}

func (c *Client) check(req order.Request) error {
	if err := c.validator.Validate(req); err != nil {
		return err
	}
	for _, checker := range c.checkers {
		if err := checker.Check(req); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) submit(ctx context.Context, req order.Request, credential string) (order.Result, error) {
	call, err := c.encoder.Encode(req, credential)
	if err != nil {
		return order.Result{}, c.fail(req, err)
	}

	id := uuid.NewString()
	raw, err := c.doer.Do(audit.WithExchangeID(ctx, id), call)
	if err != nil {
		return order.Result{}, c.fail(req, err)
	}
	text, err := protocol.ExtractResult(raw)
	if err != nil {
		return order.Result{}, c.fail(req, err)
	}
	res, err := protocol.Decode(call.Layout, text)
	if err != nil {
		return order.Result{}, c.fail(req, err)
	}
	res.Extra[order.ExtraExchangeID] = id

	if !res.Success {
		c.logger.Info("order rejected",
			zap.String("type", string(req.Type())),
			zap.String("exchange_id", id),
			zap.String("status", res.StatusCode),
			zap.String("message", res.Message),
		)
		return order.Result{}, errs.Rejected(res.StatusCode, res.Message)
	}
	c.logger.Info("order accepted",
		zap.String("type", string(req.Type())),
		zap.String("exchange_id", id),
		zap.String("order_id", res.OrderID),
	)
	return res, nil
}

func (c *Client) fail(req order.Request, err error) error {
	e := errs.Ensure(err)
	if e.Kind == errs.KindIntegration {
		c.logger.Error("integration failure",
			zap.String("type", string(req.Type())),
			zap.Error(err),
		)
	}
	return e
}
