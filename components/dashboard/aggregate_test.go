package dashboard

import "testing"

func TestAggregateEmptySetIsZero(t *testing.T) {
	for _, kind := range []Aggregation{AggregateSum, AggregateAvg, AggregateCount, AggregateMin, AggregateMax} {
		if got := Aggregate(nil, "value", kind); got != 0 {
			t.Fatalf("expected 0 for %s over empty set, got %v", kind, got)
		}
	}
}

func TestAggregateDiscardsNullAndNonNumeric(t *testing.T) {
	rows := []Record{
		{"value": 10.0},
		{"value": "20"},
		{"value": nil},
		{"value": "n/a"},
		{"other": 1},
		{"value": true},
	}
	cases := map[Aggregation]float64{
		AggregateSum: 31,
		AggregateAvg: 31.0 / 3,
		AggregateMin: 1,
		AggregateMax: 20,
	}
	for kind, want := range cases {
		if got := Aggregate(rows, "value", kind); got != want {
			t.Fatalf("%s: expected %v, got %v", kind, want, got)
		}
	}
}

func TestAggregateCountTalliesNumericValues(t *testing.T) {
	rows := []Record{{"name": "A"}, {"name": ""}, {"name": nil}, {"name": "B"}, {"name": "3"}, {"name": 4.5}, {}}
	got := Aggregate(rows, "name", AggregateCount)
	if got != 2 {
		t.Fatalf("expected 2 numeric values, got %v", got)
	}
	if got > float64(len(rows)) {
		t.Fatalf("count exceeds record count")
	}
}

func TestAggregateUnknownKind(t *testing.T) {
	if got := Aggregate([]Record{{"v": 1}}, "v", Aggregation("median")); got != 0 {
		t.Fatalf("expected 0 for unknown aggregation, got %v", got)
	}
	if ValidAggregation("median") {
		t.Fatalf("median should not be valid")
	}
}
