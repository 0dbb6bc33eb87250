package dashboard

// Aggregate reduces one field of records. Null and non-numeric values are
// discarded; an empty surviving set yields 0 for every kind. Count tallies
// the surviving numeric values.
func Aggregate(records []Record, field string, kind Aggregation) float64 {
	values := make([]float64, 0, len(records))
	for _, record := range records {
		if record == nil || isBlank(record[field]) {
			continue
		}
		if v, ok := numberValue(record[field]); ok {
			values = append(values, v)
		}
	}
	if kind == AggregateCount {
		return float64(len(values))
	}
	if len(values) == 0 {
		return 0
	}

	switch kind {
	case AggregateSum:
		return sum(values)
	case AggregateAvg:
		return sum(values) / float64(len(values))
	case AggregateMin:
		out := values[0]
		for _, v := range values[1:] {
			if v < out {
				out = v
			}
		}
		return out
	case AggregateMax:
		out := values[0]
		for _, v := range values[1:] {
			if v > out {
				out = v
			}
		}
		return out
	default:
		return 0
	}
}

// ValidAggregation reports whether kind is one of the supported reductions.
func ValidAggregation(kind Aggregation) bool {
	switch kind {
	case AggregateSum, AggregateAvg, AggregateCount, AggregateMin, AggregateMax:
		return true
	}
	return false
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
