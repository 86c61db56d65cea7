package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/emperorhan/chainaudit/internal/chain"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/metadata"
)

// ErrNoOnChainRecord is returned by the first tier when stage one produced no record.
var ErrNoOnChainRecord = errors.New("no on-chain record")

// MetadataProvider is one tier of token metadata resolution. onChain is the
// stage-one record, nil when that stage failed.
type MetadataProvider interface {
	Tier() model.MetadataTier
	Resolve(ctx context.Context, addr model.Address, onChain *model.TokenRecord) (model.TokenRecord, error)
}

// DefaultProviders is the standard tier order: the stage-one record, a direct
// read of name, symbol and decimals, then the synthetic record.
func DefaultProviders(direct chain.MetadataReader) []MetadataProvider {
	providers := []MetadataProvider{OnChainProvider{}}
	if direct != nil {
		providers = append(providers, DirectProvider{Reader: direct})
	}
	return append(providers, SyntheticProvider{})
}

type OnChainProvider struct{}

func (OnChainProvider) Tier() model.MetadataTier { return model.MetadataTierOnChain }

func (OnChainProvider) Resolve(_ context.Context, _ model.Address, onChain *model.TokenRecord) (model.TokenRecord, error) {
	if onChain == nil {
		return model.TokenRecord{}, ErrNoOnChainRecord
	}
	return onChain.Clone(), nil
}

// DirectProvider queries the minimal read interface. All three fields must
// answer; supply and owner take their defaults.
type DirectProvider struct {
	Reader chain.MetadataReader
}

func (DirectProvider) Tier() model.MetadataTier { return model.MetadataTierDirect }

func (p DirectProvider) Resolve(ctx context.Context, addr model.Address, _ *model.TokenRecord) (model.TokenRecord, error) {
	name, err := p.Reader.Name(ctx, addr)
	if err != nil {
		return model.TokenRecord{}, apperr.Upstream("name", err)
	}
	symbol, err := p.Reader.Symbol(ctx, addr)
	if err != nil {
		return model.TokenRecord{}, apperr.Upstream("symbol", err)
	}
	decimals, err := p.Reader.Decimals(ctx, addr)
	if err != nil {
		return model.TokenRecord{}, apperr.Upstream("decimals", err)
	}
	return model.TokenRecord{
		Address:     addr,
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		TotalSupply: model.DefaultTotalSupply(),
		Owner:       model.FallbackOwner,
		Exists:      true,
	}, nil
}

// SyntheticProvider builds the last-resort record from the address alone.
type SyntheticProvider struct{}

func (SyntheticProvider) Tier() model.MetadataTier { return model.MetadataTierSynthetic }

func (SyntheticProvider) Resolve(_ context.Context, addr model.Address, _ *model.TokenRecord) (model.TokenRecord, error) {
	return model.TokenRecord{
		Address:     addr,
		Name:        metadata.FallbackName(addr),
		Symbol:      metadata.FallbackSymbol(addr),
		Decimals:    model.DefaultDecimals,
		TotalSupply: model.DefaultTotalSupply(),
		Owner:       model.FallbackOwner,
		Exists:      true,
	}, nil
}

// resolveMetadata walks providers in order and stops at the first success.
func resolveMetadata(ctx context.Context, providers []MetadataProvider, addr model.Address, onChain *model.TokenRecord) (model.TokenRecord, model.MetadataTier, error) {
	var errs []error
	for _, p := range providers {
		rec, err := p.Resolve(ctx, addr, onChain)
		if err == nil {
			return rec, p.Tier(), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Tier(), err))
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no metadata providers configured"))
	}
	return model.TokenRecord{}, "", fmt.Errorf("metadata tiers exhausted: %w", errors.Join(errs...))
}
