package types

// StatsPoint is one day-bucketed value of a cumulative series.
type StatsPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// LastExecution reports the most recent ledger activity: the calendar day of
// the last block and how many transactions were added that day (not
// cumulative).
type LastExecution struct {
	Date            string `json:"date"`
	NewTransactions int    `json:"newTransactions"`
}

// ChainStats summarizes ledger activity over time. Series are cumulative and
// bucketed per UTC calendar day.
type ChainStats struct {
	EvolutionOfTransactions []StatsPoint   `json:"evolutionOfTransactions"`
	EvolutionOfVehicles     []StatsPoint   `json:"evolutionOfVehicles"`
	LastExecution           *LastExecution `json:"lastExecution"`
}
