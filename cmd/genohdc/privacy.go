package main

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/spf13/cobra"

	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/privacy/numeric"
	"github.com/hupe1980/genohdc/privacy/numeric/dynamoledger"
	"github.com/hupe1980/genohdc/privacy/randomized"
)

type releaseOutput struct {
	Mechanism        string  `json:"mechanism"`
	Noisy            float64 `json:"noisy"`
	Epsilon          float64 `json:"epsilon"`
	Delta            float64 `json:"delta,omitempty"`
	RemainingEpsilon float64 `json:"remaining_epsilon"`
	RemainingDelta   float64 `json:"remaining_delta,omitempty"`
	Queries          int     `json:"queries"`
}

func newPrivacyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "privacy",
		Short: "Differentially private releases",
	}
	cmd.AddCommand(newRandomizeCmd(a), newReleaseCmd(a))
	return cmd
}

func newRandomizeCmd(a *app) *cobra.Command {
	var (
		epsilon float64
		seed    uint64
	)

	cmd := &cobra.Command{
		Use:   "randomize HEX",
		Short: "Release a randomized-response copy of a hypervector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVector(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("epsilon") {
				epsilon = a.cfg.PrivacyParameters().Epsilon
			}
			budget, err := randomized.NewPrivacyBudget(a.cfg.Privacy.TotalEpsilon)
			if err != nil {
				return err
			}

			var opts []randomized.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, randomized.WithSeed(seed))
			}
			out, err := a.engine.Privatize(cmd.Context(), v, epsilon, budget, opts...)
			if err != nil {
				return err
			}
			return a.print(cmd, out)
		},
	}
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "privacy parameter (default: from privacy.level)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed the noise for reproducible output")
	return cmd
}

// accountBlob names the persisted state of a budget account.
func accountBlob(id string) string {
	return path.Join("privacy", id+".json")
}

// openAccount restores the configured budget account. With a ledger table
// the account is replayed from DynamoDB, otherwise it is read from the blob
// store. The returned save function persists the account after a spend.
func (a *app) openAccount(cmd *cobra.Command) (*numeric.BudgetAccount, func() error, error) {
	ctx := cmd.Context()
	pc := a.cfg.Privacy

	opts := []numeric.AccountOption{numeric.WithAccountID(pc.Account)}
	if pc.Composition == numeric.Advanced.String() {
		opts = append(opts, numeric.WithAdvancedComposition(pc.TotalDelta, a.cfg.PrivacyParameters().Delta))
	} else if pc.TotalDelta > 0 {
		opts = append(opts, numeric.WithDeltaBudget(pc.TotalDelta))
	}

	if pc.LedgerTable != "" {
		client, err := newDynamoClient(ctx, a.cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		ledger := dynamoledger.New(client, pc.LedgerTable)
		acct, err := numeric.NewBudgetAccount(pc.TotalEpsilon, append(opts, numeric.WithLedger(ledger))...)
		if err != nil {
			return nil, nil, err
		}
		if err := ledger.Replay(ctx, pc.Account, acct); err != nil {
			return nil, nil, err
		}
		return acct, func() error { return nil }, nil
	}

	store, closeStore, err := openStore(ctx, a.cfg.Storage, a.rc)
	if err != nil {
		return nil, nil, err
	}

	name := accountBlob(pc.Account)
	var acct *numeric.BudgetAccount
	err = blobstore.Read(ctx, store, name, func(r io.Reader) error {
		var err error
		acct, err = numeric.LoadBudgetAccount(r, a.engine.Codec())
		return err
	})
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		acct, err = numeric.NewBudgetAccount(pc.TotalEpsilon, opts...)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
	case err != nil:
		closeStore()
		return nil, nil, fmt.Errorf("load budget account %q: %w", pc.Account, err)
	}

	save := func() error {
		defer closeStore()
		return blobstore.Write(ctx, store, name, func(w io.Writer) error {
			return acct.Save(w, a.engine.Codec())
		})
	}
	return acct, save, nil
}

func newReleaseCmd(a *app) *cobra.Command {
	var (
		sensitivity float64
		epsilon     float64
		delta       float64
		seed        uint64
	)

	cmd := &cobra.Command{
		Use:   "release VALUE",
		Short: "Release a noised numeric statistic against the privacy budget",
		Long: `Release a noised numeric statistic. The spend is charged to the
configured privacy account first; a spend that does not fit is refused.
With --delta the Gaussian mechanism is used, otherwise Laplace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value float64
			if _, err := fmt.Sscanf(args[0], "%g", &value); err != nil {
				return fmt.Errorf("parse value %q: %w", args[0], err)
			}
			if !cmd.Flags().Changed("epsilon") {
				epsilon = a.cfg.PrivacyParameters().Epsilon
			}

			var opts []numeric.Option
			opts = append(opts, numeric.WithLogger(a.logger.Logger))
			if cmd.Flags().Changed("seed") {
				opts = append(opts, numeric.WithSeed(seed))
			}

			var (
				mechanism string
				addNoise  func(float64) float64
			)
			if delta > 0 {
				g, err := numeric.NewGaussian(cmd.Context(), sensitivity, epsilon, delta, opts...)
				if err != nil {
					return err
				}
				mechanism, addNoise = "gaussian", g.AddNoise
			} else {
				l, err := numeric.NewLaplace(cmd.Context(), sensitivity, epsilon, opts...)
				if err != nil {
					return err
				}
				mechanism, addNoise = "laplace", l.AddNoise
			}

			acct, save, err := a.openAccount(cmd)
			if err != nil {
				return err
			}
			spendErr := acct.SpendWithDelta(cmd.Context(), epsilon, delta)
			a.logger.LogPrivacySpend(cmd.Context(), epsilon, acct.RemainingEpsilon(), spendErr)
			if spendErr != nil {
				return errors.Join(spendErr, save())
			}
			if err := save(); err != nil {
				return err
			}

			return a.print(cmd, releaseOutput{
				Mechanism:        mechanism,
				Noisy:            addNoise(value),
				Epsilon:          epsilon,
				Delta:            delta,
				RemainingEpsilon: acct.RemainingEpsilon(),
				RemainingDelta:   acct.RemainingDelta(),
				Queries:          acct.QueryCount(),
			})
		},
	}
	cmd.Flags().Float64Var(&sensitivity, "sensitivity", 1, "L1 (Laplace) or L2 (Gaussian) sensitivity")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "privacy parameter (default: from privacy.level)")
	cmd.Flags().Float64Var(&delta, "delta", 0, "failure probability; > 0 selects the Gaussian mechanism")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed the noise for reproducible output")
	return cmd
}
