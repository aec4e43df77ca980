package enums

import "slices"

// QuantityChangeKind is the direction of a ledger entry.
type QuantityChangeKind string

const (
	QuantityChangeIncrease QuantityChangeKind = "increase"
	QuantityChangeDecrease QuantityChangeKind = "decrease"
)

var validQuantityChangeKinds = []QuantityChangeKind{
	QuantityChangeIncrease,
	QuantityChangeDecrease,
}

func (k QuantityChangeKind) String() string {
	return string(k)
}

func (k QuantityChangeKind) IsValid() bool {
	return slices.Contains(validQuantityChangeKinds, k)
}

// Sign returns +1 for increases and -1 for decreases.
func (k QuantityChangeKind) Sign() int {
	if k == QuantityChangeDecrease {
		return -1
	}
	return 1
}

// ParseQuantityChangeKind is case sensitive; stored rows are always lower case.
func ParseQuantityChangeKind(value string) (QuantityChangeKind, error) {
	return parseEnum(validQuantityChangeKinds, value, "quantity change kind")
}
