package validation

import (
	"fmt"
	"math"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// cross-field checks that field tags cannot express
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	v.RegisterStructValidation(createAdminOrderStructValidation, CreateAdminOrderRequest{})
	v.RegisterStructValidation(deliverStructValidation, DeliverRequest{})

	return v
}

// createOrderStructValidation verifies the item names something buyable and
// that the client-side total matches amount * unit_price (compared in cents).
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	validateItemSpec(sl, req.Item)

	total := float64(req.Amount) * req.UnitPrice
	totalCents := int64(math.Round(total * 100))
	expectedCents := int64(math.Round(req.ExpectedTotal * 100))
	if totalCents != expectedCents {
		sl.ReportError(req.ExpectedTotal, "expected_total", "ExpectedTotal", "total_match",
			fmt.Sprintf("computed %.2f != expected %.2f", total, req.ExpectedTotal))
	}
}

func createAdminOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateAdminOrderRequest)
	validateItemSpec(sl, req.Item)
}

func deliverStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(DeliverRequest)
	validateItemSpec(sl, req.Item)
}

// validateItemSpec requires a base item kind. Custom items carry their base
// kind plus a custom id, so kind is mandatory either way.
func validateItemSpec(sl validatorv10.StructLevel, item ItemSpec) {
	if item.Kind == "" {
		sl.ReportError(item, "item", "Item", "item_kind", "kind required")
	}
}
