// internal/ledger/rent.go
package ledger

// Rent computes the lamport balance an account of a given size needs to be rent exempt.
type Rent interface {
	MinimumBalance(dataLen uint64) uint64
}

const accountStorageOverhead = 128

// RentSchedule mirrors the cluster rent sysvar.
type RentSchedule struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// DefaultRent is the mainnet rent schedule.
var DefaultRent = RentSchedule{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2.0,
}

// MinimumBalance implements Rent.
func (r RentSchedule) MinimumBalance(dataLen uint64) uint64 {
	return uint64(float64((accountStorageOverhead+dataLen)*r.LamportsPerByteYear) * r.ExemptionThreshold)
}
