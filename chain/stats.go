package chain

import (
	"go.wheelz.io/wchain/types"
)

// ComputeStats folds the whole chain into day-bucketed activity series.
// Series are cumulative: each point carries the totals as of the end of that
// UTC day. Days without blocks produce no point. On an empty chain every
// series is empty and LastExecution is nil.
func ComputeStats(blocks []types.Block) types.ChainStats {
	stats := types.ChainStats{
		EvolutionOfTransactions: []types.StatsPoint{},
		EvolutionOfVehicles:     []types.StatsPoint{},
	}
	if len(blocks) == 0 {
		return stats
	}
	sorted := make([]types.Block, len(blocks))
	copy(sorted, blocks)
	SortByTime(sorted)

	var days []string
	txPerDay := make(map[string]int)
	vehicleDeltaPerDay := make(map[string]int)
	for _, b := range sorted {
		day := b.Timestamp.UTC().Format(types.DateLayout)
		if _, seen := txPerDay[day]; !seen {
			days = append(days, day)
		}
		txPerDay[day] += len(b.Transactions)
		for _, tx := range b.Transactions {
			switch tx.Action {
			case types.ActionCreate:
				vehicleDeltaPerDay[day]++
			case types.ActionDelete:
				vehicleDeltaPerDay[day]--
			}
		}
	}

	txTotal, vehicleTotal := 0, 0
	for _, day := range days {
		txTotal += txPerDay[day]
		vehicleTotal += vehicleDeltaPerDay[day]
		stats.EvolutionOfTransactions = append(stats.EvolutionOfTransactions,
			types.StatsPoint{Date: day, Value: txTotal})
		stats.EvolutionOfVehicles = append(stats.EvolutionOfVehicles,
			types.StatsPoint{Date: day, Value: vehicleTotal})
	}

	lastDay := days[len(days)-1]
	stats.LastExecution = &types.LastExecution{
		Date:            lastDay,
		NewTransactions: txPerDay[lastDay],
	}
	return stats
}
