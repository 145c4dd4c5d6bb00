package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/auth"
	"github.com/babylonlabs-io/staking-ledger/internal/services"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 1 << 20

// openRequest verifies the signed envelope of r and decodes its payload into
// v. The signer is returned as the caller. Each envelope is accepted once.
func (s *Server) openRequest(r *http.Request, v any) (address.Address, error) {
	var req auth.SignedRequest
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBodySize))
	if err := decoder.Decode(&req); err != nil {
		return address.Address{}, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request body: %v", err)
	}

	caller, err := req.Open(v, s.nowFn(), s.cfg.Ledger.RequestMaxSkew)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingPayload),
			errors.Is(err, auth.ErrInvalidSigner),
			errors.Is(err, auth.ErrInvalidSignature),
			errors.Is(err, auth.ErrStaleRequest):
			return address.Address{}, types.NewErrorWithMsg(http.StatusUnauthorized, types.Unauthorized, "%v", err)
		default:
			return address.Address{}, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "%v", err)
		}
	}

	if err := s.service.ConsumeRequest(r.Context(), req.Digest(), caller); err != nil {
		return address.Address{}, err
	}
	return caller, nil
}

func parseAddress(field, value string) (address.Address, error) {
	addr, err := address.Parse(value)
	if err != nil {
		return address.Address{}, types.NewValidationFailedError(fmt.Errorf("%s: %w", field, err))
	}
	return addr, nil
}

func urlAddress(r *http.Request, param string) (address.Address, error) {
	return parseAddress(param, chi.URLParam(r, param))
}

func (s *Server) healthCheck(r *http.Request) (*response, error) {
	if err := s.service.Ping(r.Context()); err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return ok(map[string]string{"status": "ok"}), nil
}

func (s *Server) getAuthority(*http.Request) (*response, error) {
	authority, nonce, err := s.service.VaultAuthority()
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return ok(AuthorityView{Address: authority.String(), Nonce: nonce}), nil
}

func (s *Server) createMint(r *http.Request) (*response, error) {
	var payload CreateMintPayload
	caller, err := s.openRequest(r, &payload)
	if err != nil {
		return nil, err
	}

	var authority address.Address
	if payload.Authority != "" {
		if authority, err = parseAddress("authority", payload.Authority); err != nil {
			return nil, err
		}
	}

	mint, err := s.service.CreateMint(r.Context(), &services.CreateMintRequest{
		Creator:   caller,
		Seed:      payload.Seed,
		Authority: authority,
		Decimals:  payload.Decimals,
	})
	if err != nil {
		return nil, err
	}
	return created(mintView(mint)), nil
}

func (s *Server) getMint(r *http.Request) (*response, error) {
	mintAddr, err := urlAddress(r, "mint")
	if err != nil {
		return nil, err
	}

	mint, err := s.service.GetMint(r.Context(), mintAddr)
	if err != nil {
		return nil, err
	}
	return ok(mintView(mint)), nil
}

func (s *Server) issueTokens(r *http.Request) (*response, error) {
	mintAddr, err := urlAddress(r, "mint")
	if err != nil {
		return nil, err
	}

	var payload IssueTokensPayload
	caller, err := s.openRequest(r, &payload)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", payload.To)
	if err != nil {
		return nil, err
	}

	if err := s.service.IssueTokens(r.Context(), caller, mintAddr, to, payload.Amount); err != nil {
		return nil, err
	}

	account, err := s.service.GetTokenAccount(r.Context(), to)
	if err != nil {
		return nil, err
	}
	return ok(tokenAccountView(account)), nil
}

func (s *Server) getPoolByMint(r *http.Request) (*response, error) {
	mintAddr, err := urlAddress(r, "mint")
	if err != nil {
		return nil, err
	}

	pool, err := s.service.GetPoolByMint(r.Context(), mintAddr)
	if err != nil {
		return nil, err
	}
	return ok(poolView(pool)), nil
}

func (s *Server) createAccount(r *http.Request) (*response, error) {
	var payload CreateAccountPayload
	caller, err := s.openRequest(r, &payload)
	if err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", payload.Mint)
	if err != nil {
		return nil, err
	}

	account, err := s.service.CreateTokenAccount(r.Context(), caller, mint)
	if err != nil {
		return nil, err
	}
	return created(tokenAccountView(account)), nil
}

func (s *Server) getAccount(r *http.Request) (*response, error) {
	accountAddr, err := urlAddress(r, "address")
	if err != nil {
		return nil, err
	}

	account, err := s.service.GetTokenAccount(r.Context(), accountAddr)
	if err != nil {
		return nil, err
	}
	return ok(tokenAccountView(account)), nil
}

func (s *Server) initializePool(r *http.Request) (*response, error) {
	var payload InitializePoolPayload
	caller, err := s.openRequest(r, &payload)
	if err != nil {
		return nil, err
	}
	stakedMint, err := parseAddress("staked_mint", payload.StakedMint)
	if err != nil {
		return nil, err
	}
	rewardMint, err := parseAddress("reward_mint", payload.RewardMint)
	if err != nil {
		return nil, err
	}

	pool, err := s.service.InitializePool(r.Context(), caller, stakedMint, rewardMint)
	if err != nil {
		return nil, err
	}
	return created(poolView(pool)), nil
}

func (s *Server) getPool(r *http.Request) (*response, error) {
	poolAddr, err := urlAddress(r, "pool")
	if err != nil {
		return nil, err
	}

	pool, err := s.service.GetPool(r.Context(), poolAddr)
	if err != nil {
		return nil, err
	}
	return ok(poolView(pool)), nil
}

func (s *Server) getPoolStats(r *http.Request) (*response, error) {
	poolAddr, err := urlAddress(r, "pool")
	if err != nil {
		return nil, err
	}

	stats, err := s.service.GetPoolStats(r.Context(), poolAddr)
	if err != nil {
		return nil, err
	}
	return ok(poolStatsView(stats)), nil
}

func (s *Server) initializeStakeEntry(r *http.Request) (*response, error) {
	poolAddr, err := urlAddress(r, "pool")
	if err != nil {
		return nil, err
	}

	var payload InitializeStakeEntryPayload
	caller, err := s.openRequest(r, &payload)
	if err != nil {
		return nil, err
	}
	rewardDestination, err := parseAddress("reward_destination", payload.RewardDestination)
	if err != nil {
		return nil, err
	}

	entry, err := s.service.InitializeStakeEntry(r.Context(), caller, poolAddr, rewardDestination)
	if err != nil {
		return nil, err
	}
	return created(stakeEntryView(entry)), nil
}

func (s *Server) getStakeEntry(r *http.Request) (*response, error) {
	entryAddr, err := urlAddress(r, "address")
	if err != nil {
		return nil, err
	}

	entry, err := s.service.GetStakeEntry(r.Context(), entryAddr)
	if err != nil {
		return nil, err
	}
	return ok(stakeEntryView(entry)), nil
}

func (s *Server) deposit(r *http.Request) (*response, error) {
	poolAddr, err := urlAddress(r, "pool")
	if err != nil {
		return nil, err
	}

	var payload DepositPayload
	caller, err := s.openRequest(r, &payload)
	if err != nil {
		return nil, err
	}

	req := &services.DepositRequest{Caller: caller, Pool: poolAddr, Amount: payload.Amount}
	if req.StakedMint, err = parseAddress("staked_mint", payload.StakedMint); err != nil {
		return nil, err
	}
	if req.StakeEntry, err = parseAddress("stake_entry", payload.StakeEntry); err != nil {
		return nil, err
	}
	if req.Source, err = parseAddress("source", payload.Source); err != nil {
		return nil, err
	}

	result, err := s.service.Deposit(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return ok(operationView(result)), nil
}

func (s *Server) withdraw(r *http.Request) (*response, error) {
	poolAddr, err := urlAddress(r, "pool")
	if err != nil {
		return nil, err
	}

	var payload WithdrawPayload
	caller, err := s.openRequest(r, &payload)
	if err != nil {
		return nil, err
	}

	req := &services.WithdrawRequest{Caller: caller, Pool: poolAddr}
	if req.StakedMint, err = parseAddress("staked_mint", payload.StakedMint); err != nil {
		return nil, err
	}
	if req.StakeEntry, err = parseAddress("stake_entry", payload.StakeEntry); err != nil {
		return nil, err
	}
	if req.Destination, err = parseAddress("destination", payload.Destination); err != nil {
		return nil, err
	}
	if req.RewardMint, err = parseAddress("reward_mint", payload.RewardMint); err != nil {
		return nil, err
	}
	if req.RewardDestination, err = parseAddress("reward_destination", payload.RewardDestination); err != nil {
		return nil, err
	}

	result, err := s.service.Withdraw(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return ok(operationView(result)), nil
}
