package connection

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/dmitrijs2005/flogger/internal/observe"
)

// Static is the connection for credential-only backends such as S3 and the
// memory provider. It starts connected; ClearConnection disconnects it
// until Connect is called.
type Static struct {
	connected *observe.Value[bool]
	owner     *observe.Value[string]
}

func NewStatic() *Static {
	return &Static{connected: observe.NewValue(true), owner: observe.NewValue("")}
}

func (s *Static) HasConnection() bool { return s.connected.Get() }

func (s *Static) OnConnectionChange(fn func(bool)) (cancel func()) {
	return s.connected.Subscribe(fn)
}

func (s *Static) Connect() {
	if !s.connected.Get() {
		s.connected.Set(true)
	}
}

func (s *Static) ClearConnection(context.Context) {
	s.owner.Set("")
	if s.connected.Get() {
		s.connected.Set(false)
	}
}

func (s *Static) EnsureFresh(context.Context) error {
	if !s.connected.Get() {
		return fmt.Errorf("%w: disconnected", common.ErrorUnauthorized)
	}
	return nil
}

func (s *Static) AccountOwner(ctx context.Context, f AccountFetcher) (string, error) {
	acc, err := f.CurrentAccount(ctx)
	if err != nil {
		s.ClearConnection(ctx)
		return "", err
	}
	s.owner.Set(acc.Email)
	return acc.Email, nil
}

func (s *Static) Owner() string { return s.owner.Get() }
