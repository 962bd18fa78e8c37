package ingest

import (
	"time"

	"pricecollector/internal/apperror"
)

// State is a step of one ingestion run.
type State string

const (
	StateInit            State = "init"
	StateFetchingSymbols State = "fetching_symbols"
	StateFetchingPrices  State = "fetching_prices"
	StatePersisting      State = "persisting"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Outcome reports how a run ended. A Failed outcome carries the error Code
// and the stage it failed in; no row was committed.
type Outcome struct {
	RunID    string
	State    State         // StateDone or StateFailed
	FailedIn State         // stage that failed, empty when Done
	Code     apperror.Code // empty when Done
	Reason   string
	Err      error

	Started  time.Time
	Finished time.Time

	Symbols  int      // symbols requested from the provider
	Missing  []string // requested symbols without a price
	Columns  int      // symbol columns in the committed table
	Rows     int      // rows in the committed table
	Warnings []string // post-commit side effects that did not succeed
}

func (o Outcome) OK() bool { return o.State == StateDone }

// ExitCode is 0 for Done and a Code-specific non-zero value otherwise.
func (o Outcome) ExitCode() int {
	if o.OK() {
		return 0
	}
	if o.Code == "" {
		return apperror.Unknown.ExitCode()
	}
	return o.Code.ExitCode()
}

func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}
