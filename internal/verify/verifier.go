// Package verify checks a freshly deployed token contract against its
// deployment plan: supply, owner balance, metadata, and the hosted
// reference document binding.
package verify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/brainstems/itlx-nep141-token/internal/deploy"
	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/metadata"
	"github.com/brainstems/itlx-nep141-token/internal/nearrpc"
	"github.com/brainstems/itlx-nep141-token/internal/observability"
)

// Check is one verification result.
type Check struct {
	Name   string
	Passed bool
	Want   string
	Got    string
}

// Report is the structured outcome of a verification run.
type Report struct {
	Contract string
	Checks   []Check
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the names of failed checks.
func (r *Report) Failed() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// Verifier queries the live contract and compares it to the plan.
type Verifier struct {
	rpc     nearrpc.Viewer
	fetcher *metadata.Fetcher // optional, skips hosted-document check when nil
	logger  zerolog.Logger
}

// NewVerifier creates a verifier over a view-call client.
func NewVerifier(rpc nearrpc.Viewer, fetcher *metadata.Fetcher, logger zerolog.Logger) *Verifier {
	return &Verifier{
		rpc:     rpc,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "verify").Logger(),
	}
}

// Run verifies the contract named by the plan. Query errors fail the
// corresponding check rather than aborting the run, so the report is
// complete even against a half-initialized contract.
func (v *Verifier) Run(ctx context.Context, plan *deploy.Plan) (*Report, error) {
	report := &Report{Contract: plan.TokenAccount}

	supply := v.checkSupply(ctx, plan, report)
	v.checkOwnerBalance(ctx, plan, supply, report)

	onChain := v.checkMetadata(ctx, plan, report)
	v.checkHostedDocument(ctx, onChain, report)

	for _, c := range report.Checks {
		observability.RecordVerificationCheck(c.Name, c.Passed)
		if c.Passed {
			v.logger.Info().Str("check", c.Name).Str("got", c.Got).Msg("check passed")
		} else {
			v.logger.Error().Str("check", c.Name).Str("want", c.Want).Str("got", c.Got).Msg("check failed")
		}
	}

	if !report.Passed() {
		return report, fmt.Errorf("verification failed: %v", report.Failed())
	}
	return report, nil
}

// checkSupply compares ft_total_supply with the planned supply.
func (v *Verifier) checkSupply(ctx context.Context, plan *deploy.Plan, report *Report) domain.Balance {
	check := Check{Name: "total_supply", Want: plan.Init.TotalSupply}

	supply, err := nearrpc.FTTotalSupply(ctx, v.rpc, plan.TokenAccount)
	if err != nil {
		check.Got = fmt.Sprintf("query error: %v", err)
		report.Checks = append(report.Checks, check)
		return domain.Balance{}
	}

	check.Got = supply.String()
	check.Passed = supply.String() == plan.Init.TotalSupply
	report.Checks = append(report.Checks, check)
	return supply
}

// checkOwnerBalance verifies the owner holds the entire supply, which
// must be true right after init and before any distribution.
func (v *Verifier) checkOwnerBalance(ctx context.Context, plan *deploy.Plan, supply domain.Balance, report *Report) {
	check := Check{Name: "owner_balance", Want: supply.String()}

	balance, err := nearrpc.FTBalanceOf(ctx, v.rpc, plan.TokenAccount, plan.Init.OwnerID)
	if err != nil {
		check.Got = fmt.Sprintf("query error: %v", err)
		report.Checks = append(report.Checks, check)
		return
	}

	check.Got = balance.String()
	check.Passed = balance.Cmp(supply) == 0 && !supply.IsZero()
	report.Checks = append(report.Checks, check)
}

// checkMetadata compares ft_metadata with the authored document.
func (v *Verifier) checkMetadata(ctx context.Context, plan *deploy.Plan, report *Report) *domain.TokenMetadata {
	onChain, err := nearrpc.FTMetadata(ctx, v.rpc, plan.TokenAccount)
	if err != nil {
		report.Checks = append(report.Checks, Check{
			Name: "metadata",
			Got:  fmt.Sprintf("query error: %v", err),
		})
		return nil
	}

	want := v.expectedMetadata(plan)
	if want == nil {
		// new_default_meta or unreadable document: only structural checks apply.
		report.Checks = append(report.Checks, Check{
			Name:   "metadata",
			Want:   domain.FTMetadataSpec,
			Got:    onChain.Spec,
			Passed: onChain.Validate() == nil,
		})
		return onChain
	}

	fields := []Check{
		{Name: "metadata_spec", Want: want.Spec, Got: onChain.Spec},
		{Name: "metadata_name", Want: want.Name, Got: onChain.Name},
		{Name: "metadata_symbol", Want: want.Symbol, Got: onChain.Symbol},
		{Name: "metadata_decimals", Want: fmt.Sprint(want.Decimals), Got: fmt.Sprint(onChain.Decimals)},
		{Name: "metadata_reference", Want: strOrEmpty(want.Reference), Got: strOrEmpty(onChain.Reference)},
		{
			Name: "metadata_reference_hash",
			Want: base64.StdEncoding.EncodeToString(want.ReferenceHash),
			Got:  base64.StdEncoding.EncodeToString(onChain.ReferenceHash),
		},
	}
	for i := range fields {
		fields[i].Passed = fields[i].Want == fields[i].Got
	}
	report.Checks = append(report.Checks, fields...)
	return onChain
}

// checkHostedDocument refetches the hosted reference document and
// verifies its hash against the on-chain reference_hash.
func (v *Verifier) checkHostedDocument(ctx context.Context, onChain *domain.TokenMetadata, report *Report) {
	if v.fetcher == nil || onChain == nil || onChain.Reference == nil {
		return
	}

	check := Check{
		Name: "hosted_reference",
		Want: base64.StdEncoding.EncodeToString(onChain.ReferenceHash),
	}

	raw, err := v.fetcher.Fetch(ctx, *onChain.Reference)
	if err != nil {
		check.Got = fmt.Sprintf("fetch error: %v", err)
		report.Checks = append(report.Checks, check)
		return
	}

	got := metadata.ReferenceHash(raw)
	check.Got = base64.StdEncoding.EncodeToString(got)
	check.Passed = bytes.Equal(got, onChain.ReferenceHash)
	report.Checks = append(report.Checks, check)
}

// expectedMetadata resolves what the chain should hold, or nil when the
// plan carries no explicit document.
func (v *Verifier) expectedMetadata(plan *deploy.Plan) *domain.TokenMetadata {
	if plan.Init.Method != deploy.InitMethodNew || plan.Metadata.DocumentPath == "" {
		return nil
	}
	doc, raw, err := metadata.LoadDocument(plan.Metadata.DocumentPath)
	if err != nil {
		return nil
	}
	md := metadata.OnChain(doc, plan.Metadata.HostedURL, raw)
	return &md
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
