package bootstrap

import (
	"github.com/skylarkml/skylark/pkg/feature"
	"github.com/skylarkml/skylark/pkg/registry"
	"github.com/skylarkml/skylark/pkg/skyerrors"
)

func init() {
	feature.RegisterTransform("avg_order_value", func(raw map[string]interface{}) (interface{}, error) {
		spent, ok := asFloat(raw["total_spent"])
		if !ok {
			return nil, skyerrors.New(skyerrors.ErrorTypeData, "total_spent is not numeric")
		}
		purchases, ok := asFloat(raw["total_purchases"])
		if !ok {
			return nil, skyerrors.New(skyerrors.ErrorTypeData, "total_purchases is not numeric")
		}
		if purchases == 0 {
			return float64(0), nil
		}
		return spent / purchases, nil
	})
}

// SeedCustomerMetrics registers the customer_metrics example group: raw
// spend and purchase counts plus a derived average order value. Used by
// `skylark serve --seed` and as a realistic end-to-end fixture.
func SeedCustomerMetrics(reg *registry.Store) error {
	group := feature.NewGroup("customer_metrics", "customer", "Customer purchasing behavior metrics")

	zero := 0.0

	totalSpent := feature.NewDefinition(
		feature.NewMetadata("total_spent", "Lifetime spend in account currency",
			feature.TypeNumerical, "customer", "sales-team"),
		nil,
		feature.Bounded(&zero, nil),
	)
	totalPurchases := feature.NewDefinition(
		feature.NewMetadata("total_purchases", "Lifetime number of purchases",
			feature.TypeNumerical, "customer", "sales-team"),
		nil,
		feature.Bounded(&zero, nil),
	)

	avgTransform, err := feature.TransformationFromRegistry(
		"calculate_avg_order_value",
		"Average order value, zero for customers with no purchases",
		[]string{"total_spent", "total_purchases"},
		"avg_order_value",
	)
	if err != nil {
		return err
	}
	avgOrderValue := feature.NewDefinition(
		feature.NewMetadata("avg_order_value", "Average spend per purchase",
			feature.TypeNumerical, "customer", "sales-team"),
		avgTransform,
		feature.Bounded(&zero, nil),
	)

	for _, def := range []*feature.Definition{totalSpent, totalPurchases, avgOrderValue} {
		def.Metadata.Activate()
		if err := group.AddFeature(def); err != nil {
			return err
		}
	}

	if !reg.RegisterFeatureGroup(group) {
		return skyerrors.New(skyerrors.ErrorTypeConflict, "customer_metrics is already registered")
	}
	return nil
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
