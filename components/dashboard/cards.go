package dashboard

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CardView is a rendered summary card.
type CardView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Value       float64      `json:"value"`
	Display     string       `json:"display"`
	Field       string       `json:"field"`
	Aggregation Aggregation  `json:"aggregation"`
	Format      string       `json:"format,omitempty"`
	Variant     string       `json:"variant,omitempty"`
	Trend       string       `json:"trend,omitempty"`
	Change      *float64     `json:"change,omitempty"`
	Tooltip     *CardTooltip `json:"tooltip,omitempty"`
}

// RenderCards aggregates each card over rows and formats the result.
func RenderCards(cards []CardDefinition, rows []Record) []CardView {
	out := make([]CardView, 0, len(cards))
	for _, card := range cards {
		value := Aggregate(rows, card.ValueField, card.Aggregation)
		out = append(out, CardView{
			ID:          card.ID,
			Title:       card.Title,
			Value:       value,
			Display:     FormatValue(value, card.Format),
			Field:       card.ValueField,
			Aggregation: card.Aggregation,
			Format:      card.Format,
			Variant:     card.Variant,
			Trend:       card.Trend,
			Change:      card.Change,
			Tooltip:     card.Tooltip,
		})
	}
	return out
}

var displayPrinter = message.NewPrinter(language.English)

// FormatValue renders a number for display: currency "$1,235",
// percentage "12.3%", decimal "1,234.57", anything else grouped with up to
// three fraction digits.
func FormatValue(value float64, format string) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	switch format {
	case "currency":
		amount := displayPrinter.Sprint(number.Decimal(math.Abs(value), number.MaxFractionDigits(0)))
		if math.Round(value) < 0 {
			return "-$" + amount
		}
		return "$" + amount
	case "percentage":
		return displayPrinter.Sprintf("%.1f%%", value)
	case "decimal":
		return displayPrinter.Sprint(number.Decimal(value, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	default:
		return displayPrinter.Sprint(number.Decimal(value, number.MaxFractionDigits(3)))
	}
}
