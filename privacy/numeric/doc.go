// Package numeric provides the Laplace and Gaussian mechanisms for numeric
// queries together with a composition-aware budget account.
//
// The Laplace mechanism gives pure ε-DP with noise scale Δ/ε. The Gaussian
// mechanism gives (ε, δ)-DP with σ = Δ·sqrt(2·ln(1.25/δ))/ε. A BudgetAccount
// tracks the total cost of many releases under basic or advanced
// composition and can mirror every spend into a Ledger.
package numeric
