// Package wallet connects a backend-held wallet and sends ETH from it.
// The private key is passed through to the backend once and never stored.
package wallet

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/credentials"
	"ledgerdesk/internal/pkg/validate"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoWallet is returned when the backend holds no wallet for the user.
var ErrNoWallet = errors.New("no wallet connected")

type Backend interface {
	Wallets(ctx context.Context) ([]api.Wallet, error)
	ConnectWallet(ctx context.Context, in api.ConnectWalletInput) (*api.Wallet, error)
	SendETH(ctx context.Context, in api.SendInput) (*api.SendResult, error)
}

// ConnectForm is the connect screen. PrivateKey is handed to the backend as is.
type ConnectForm struct {
	PrivateKey string `json:"private_key" binding:"required"`
	Name       string `json:"name" binding:"required"`
	WalletType string `json:"wallet_type" binding:"required"`
}

// SendForm is the send screen before parsing.
type SendForm struct {
	ToAddress string `json:"to_address" binding:"required,eth_address"`
	Amount    string `json:"amount" binding:"required,positive_amount"`
}

// Balance is the first wallet's figures as computed by the backend.
type Balance struct {
	Address string
	ETH     decimal.Decimal
	USD     decimal.Decimal
}

// Snapshot is a copy of the view state: loading, error or success.
type Snapshot struct {
	Loading bool
	Error   string
	Success string
	Wallet  credentials.Wallet
}

type Service struct {
	backend Backend
	creds   *credentials.Store
	logger  *zap.Logger

	mu       sync.Mutex
	inflight int
	errMsg   string
	success  string
}

func NewService(backend Backend, creds *credentials.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, creds: creds, logger: logger}
}

// Connect submits the key and remembers only the resulting address.
func (s *Service) Connect(ctx context.Context, form ConnectForm) (*api.Wallet, error) {
	form.PrivateKey = strings.TrimSpace(form.PrivateKey)
	if err := validate.Struct(form); err != nil {
		return nil, err
	}

	s.begin()
	w, err := s.backend.ConnectWallet(ctx, api.ConnectWalletInput{
		PrivateKey: form.PrivateKey,
		Name:       strings.TrimSpace(form.Name),
		WalletType: form.WalletType,
	})
	if err != nil {
		return nil, s.fail(err)
	}

	if err := s.creds.SetWallet(credentials.Wallet{
		Address:    w.Address,
		Connected:  true,
		ETHBalance: w.ETHBalance.String(),
	}); err != nil {
		s.logger.Warn("wallet state not saved", zap.Error(err))
	}
	s.succeed("wallet connected")
	return w, nil
}

// Reconnect restores the stored address if the backend still holds that
// wallet, and forgets it otherwise.
func (s *Service) Reconnect(ctx context.Context) (credentials.Wallet, error) {
	stored := s.creds.Wallet()
	if stored.Address == "" {
		return stored, ErrNoWallet
	}

	s.begin()
	list, err := s.backend.Wallets(ctx)
	if err != nil {
		return stored, s.fail(err)
	}
	for _, w := range list {
		if strings.EqualFold(w.Address, stored.Address) {
			restored := credentials.Wallet{
				Address:    w.Address,
				Connected:  true,
				ETHBalance: w.ETHBalance.String(),
			}
			if err := s.creds.SetWallet(restored); err != nil {
				s.logger.Warn("wallet state not saved", zap.Error(err))
			}
			s.succeed("wallet reconnected")
			return restored, nil
		}
	}

	if err := s.creds.SetWallet(credentials.Wallet{}); err != nil {
		s.logger.Warn("wallet state not saved", zap.Error(err))
	}
	return credentials.Wallet{}, s.fail(ErrNoWallet)
}

// Balance reads the first wallet entry and stores its ETH balance.
func (s *Service) Balance(ctx context.Context) (*Balance, error) {
	s.begin()
	list, err := s.backend.Wallets(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	if len(list) == 0 {
		return nil, s.fail(ErrNoWallet)
	}
	first := list[0]

	w := s.creds.Wallet()
	w.ETHBalance = first.ETHBalance.String()
	if w.Address == "" {
		w.Address = first.Address
		w.Connected = true
	}
	if err := s.creds.SetWallet(w); err != nil {
		s.logger.Warn("wallet state not saved", zap.Error(err))
	}
	s.succeed("")
	return &Balance{Address: first.Address, ETH: first.ETHBalance, USD: first.USDValue}, nil
}

// Send validates the form before any request is made.
func (s *Service) Send(ctx context.Context, form SendForm) (*api.SendResult, error) {
	form.ToAddress = strings.TrimSpace(form.ToAddress)
	form.Amount = strings.TrimSpace(form.Amount)
	if err := validate.Struct(form); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(form.Amount)
	if err != nil {
		return nil, validate.FieldErrors{{Field: "amount", Message: "amount must be a number"}}
	}

	s.begin()
	res, err := s.backend.SendETH(ctx, api.SendInput{ToAddress: form.ToAddress, Amount: amount})
	if err != nil {
		return nil, s.fail(err)
	}
	s.logger.Info("eth sent", zap.String("to", form.ToAddress), zap.String("tx_hash", res.TxHash))
	s.succeed("transaction submitted")
	return res, nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Loading: s.inflight > 0,
		Error:   s.errMsg,
		Success: s.success,
		Wallet:  s.creds.Wallet(),
	}
}

func (s *Service) begin() {
	s.mu.Lock()
	s.inflight++
	s.errMsg = ""
	s.success = ""
	s.mu.Unlock()
}

func (s *Service) fail(err error) error {
	s.mu.Lock()
	s.inflight--
	s.errMsg = err.Error()
	s.mu.Unlock()
	return err
}

func (s *Service) succeed(msg string) {
	s.mu.Lock()
	s.inflight--
	s.success = msg
	s.mu.Unlock()
}
